// Command tablero-fakeapi serves an in-memory task API for local
// development against the tablero client.
package main

import (
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/imkarma/tablero/internal/fakeapi"
)

var (
	addr      string
	noPatch   bool
	shape     string
	withAuth  bool
	statuses  string
	seedCount int
	email     string
	password  string
)

var rootCmd = &cobra.Command{
	Use:          "tablero-fakeapi",
	Short:        "In-memory task API for trying tablero locally",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&addr, "addr", ":3000", "Listen address")
	f.BoolVar(&noPatch, "no-patch", false, "Answer PATCH with 404 so clients fall back to PUT")
	f.StringVar(&shape, "shape", "list", "List payload shape: list, data or tasks")
	f.BoolVar(&withAuth, "auth", false, "Require the bearer token issued by login on task routes")
	f.StringVar(&statuses, "statuses", "Por hacer,Haciendo,Hecho", "Comma-separated status enum (empty accepts anything)")
	f.IntVar(&seedCount, "seed", 3, "Number of sample tasks to create")
	f.StringVar(&email, "user", "demo@example.com", "Email of the seeded account")
	f.StringVar(&password, "password", "demo1234", "Password of the seeded account")
}

func run(cmd *cobra.Command, args []string) error {
	var opts []fakeapi.Option
	switch shape {
	case "list":
	case "data":
		opts = append(opts, fakeapi.WithShape(fakeapi.ShapeData))
	case "tasks":
		opts = append(opts, fakeapi.WithShape(fakeapi.ShapeTasks))
	default:
		return fmt.Errorf("unknown shape %q", shape)
	}
	if noPatch {
		opts = append(opts, fakeapi.WithoutPatch())
	}
	if withAuth {
		opts = append(opts, fakeapi.WithAuth())
	}

	var enum []string
	for _, s := range strings.Split(statuses, ",") {
		if s = strings.TrimSpace(s); s != "" {
			enum = append(enum, s)
		}
	}
	opts = append(opts, fakeapi.WithAllowedStatuses(enum...))

	srv := fakeapi.New(opts...)
	srv.AddUser(email, password)
	for i := 0; i < seedCount; i++ {
		status := "Por hacer"
		if len(enum) > 0 {
			status = enum[i%len(enum)]
		}
		srv.AddTask(fmt.Sprintf("Sample task %d", i+1), "Seeded by tablero-fakeapi", status)
	}

	log.WithFields(log.Fields{
		"user":  email,
		"tasks": seedCount,
		"patch": !noPatch,
	}).Info("seeded")
	return srv.Start(addr)
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
