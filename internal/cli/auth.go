package cli

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/imkarma/tablero/internal/api"
	"github.com/imkarma/tablero/internal/auth"
	"github.com/imkarma/tablero/internal/printer"
)

var (
	loginEmail    string
	loginPassword string

	regFirstName string
	regLastName  string
	regAge       int
	regEmail     string
	regPassword  string

	forgotEmail string

	resetToken    string
	resetPassword string

	profFirstName string
	profLastName  string
	profEmail     string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the session token",
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE:  runLogout,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account on the task API",
	RunE:  runRegister,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	RunE:  runWhoami,
}

var forgotPasswordCmd = &cobra.Command{
	Use:   "forgot-password",
	Short: "Ask the API to mail password reset instructions",
	RunE:  runForgotPassword,
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Set a new password with the token from the reset mail",
	RunE:  runResetPassword,
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Update the logged-in user's profile",
	Long: "Saves the given profile fields. Fields without a flag are left\n" +
		"untouched. A rejected session is forgotten.",
	RunE: runProfile,
}

func init() {
	forgotPasswordCmd.Flags().StringVarP(&forgotEmail, "email", "e", "", "Account email")

	resetPasswordCmd.Flags().StringVar(&resetToken, "token", "", "Reset token (prompted when empty)")
	resetPasswordCmd.Flags().StringVarP(&resetPassword, "password", "p", "", "New password (prompted when empty)")

	profileCmd.Flags().StringVar(&profFirstName, "first-name", "", "New first name(s)")
	profileCmd.Flags().StringVar(&profLastName, "last-name", "", "New last name(s)")
	profileCmd.Flags().StringVarP(&profEmail, "email", "e", "", "New email")

	loginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "Account email")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Account password (prompted when empty)")

	registerCmd.Flags().StringVar(&regFirstName, "first-name", "", "First name(s)")
	registerCmd.Flags().StringVar(&regLastName, "last-name", "", "Last name(s)")
	registerCmd.Flags().IntVar(&regAge, "age", 0, "Age")
	registerCmd.Flags().StringVarP(&regEmail, "email", "e", "", "Account email")
	registerCmd.Flags().StringVarP(&regPassword, "password", "p", "", "Password (prompted when empty)")
}

func runLogin(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	p := newPrompter(cmd)
	email, password := loginEmail, loginPassword
	if email == "" {
		if email, err = p.ask("Email", ""); err != nil {
			return err
		}
	}
	if password == "" {
		if password, err = p.ask("Password", ""); err != nil {
			return err
		}
	}

	res, err := sess.client.Login(context.Background(), strings.TrimSpace(email), password)
	if err != nil {
		return printer.Error("Login failed", err.Error())
	}

	userID := res.User.ID
	if userID == "" {
		userID = auth.UserIDFromToken(res.Token)
	}
	if err := sess.store.SaveSession(res.Token, userID); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	printer.Success("Logged in as %s\n", email)
	if userID == "" {
		printer.Warning("The server did not return a user id; new tasks will have no owner\n")
	}
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.ClearSession(); err != nil {
		return err
	}
	printer.Success("Logged out\n")
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	p := newPrompter(cmd)
	u := api.NewUser{
		FirstName: regFirstName,
		LastName:  regLastName,
		Age:       regAge,
		Email:     regEmail,
		Password:  regPassword,
	}
	fields := []struct {
		label string
		dst   *string
	}{
		{"First name(s)", &u.FirstName},
		{"Last name(s)", &u.LastName},
		{"Email", &u.Email},
	}
	for _, f := range fields {
		if *f.dst == "" {
			if *f.dst, err = p.ask(f.label, ""); err != nil {
				return err
			}
		}
	}
	if u.Age == 0 {
		ans, err := p.ask("Age", "")
		if err != nil {
			return err
		}
		if u.Age, err = strconv.Atoi(ans); err != nil {
			return fmt.Errorf("invalid age %q", ans)
		}
	}
	if u.Password == "" {
		if u.Password, err = p.ask("Password", ""); err != nil {
			return err
		}
	}
	if u.ConfirmPassword, err = p.ask("Confirm password", ""); err != nil {
		return err
	}
	if u.Password != u.ConfirmPassword {
		return fmt.Errorf("passwords do not match")
	}

	if err := sess.client.Register(context.Background(), u); err != nil {
		return printer.Error("Registration failed", err.Error())
	}
	printer.Success("Account created for %s. Run: tablero login\n", u.Email)
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	if sess.store.Token() == "" {
		return printer.Error("Not logged in", "", "Run: tablero login")
	}
	id := sess.userID()
	if id == "" {
		printer.Info("Logged in (user id unknown)\n")
		return nil
	}

	user, err := sess.client.GetUser(context.Background(), id)
	if err != nil {
		printer.Info("Logged in as %s\n", printer.ID(id))
		printer.Warning("Could not fetch profile: %v\n", err)
		return nil
	}
	name := strings.TrimSpace(fmt.Sprintf("%v %v", orEmpty(user["nombres"]), orEmpty(user["apellidos"])))
	if name == "" {
		name = fmt.Sprint(orEmpty(user["email"]))
	}
	printer.Info("%s  %s\n", name, printer.ID(id))
	if email, ok := user["email"].(string); ok && email != "" {
		printer.Info("  %s\n", printer.Dim(email))
	}
	return nil
}

func runForgotPassword(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	email := forgotEmail
	if email == "" {
		if email, err = newPrompter(cmd).ask("Email", ""); err != nil {
			return err
		}
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}

	msg, err := sess.client.ForgotPassword(context.Background(), email)
	if err != nil {
		return printer.Error("Reset request failed", err.Error())
	}
	printer.Success("Reset requested for %s\n", email)
	if msg != "" {
		printer.Info("  %s\n", printer.Dim(msg))
	}
	printer.Info("Then run: tablero reset-password\n")
	return nil
}

func runResetPassword(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	p := newPrompter(cmd)
	r := api.PasswordReset{Token: resetToken, Password: resetPassword}
	if r.Token == "" {
		if r.Token, err = p.ask("Reset token", ""); err != nil {
			return err
		}
	}
	if r.Password == "" {
		if r.Password, err = p.ask("New password", ""); err != nil {
			return err
		}
	}
	if r.ConfirmPassword, err = p.ask("Confirm password", ""); err != nil {
		return err
	}
	r.Token = strings.TrimSpace(r.Token)
	if r.Token == "" || r.Password == "" {
		return fmt.Errorf("token and password are required")
	}
	if r.Password != r.ConfirmPassword {
		return fmt.Errorf("passwords do not match")
	}

	if err := sess.client.ResetPassword(context.Background(), r); err != nil {
		return printer.Error("Password not changed", err.Error())
	}
	printer.Success("Password changed. Run: tablero login\n")
	return nil
}

func runProfile(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	if sess.store.Token() == "" {
		return printer.Error("Not logged in", "", "Run: tablero login")
	}
	id := sess.userID()
	if id == "" {
		return printer.Error("Unknown user", "Neither the session nor the token carries a user id.", "Run: tablero login")
	}

	fields := api.ProfileUpdate{}
	for k, v := range map[string]string{"nombres": profFirstName, "apellidos": profLastName, "email": profEmail} {
		if v = strings.TrimSpace(v); v != "" {
			fields[k] = v
		}
	}
	if len(fields) == 0 {
		printer.Info("No profile changes to save\n")
		return nil
	}

	user, err := sess.client.UpdateUser(context.Background(), id, fields)
	if api.IsStatus(err, http.StatusUnauthorized) {
		if cerr := sess.store.ClearSession(); cerr != nil {
			return cerr
		}
		return printer.Error("Session expired", "The server rejected the stored token, so it was removed.", "Run: tablero login")
	}
	if err != nil {
		return printer.Error("Profile not saved", err.Error())
	}

	printer.Success("Profile saved\n")
	if email, ok := user["email"].(string); ok && email != "" {
		printer.Info("  %s\n", printer.Dim(email))
	}
	return nil
}

func orEmpty(v any) any {
	if v == nil {
		return ""
	}
	return v
}
