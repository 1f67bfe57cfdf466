package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ClimateViz-integrator/climateviz-app/internal/app"
	"github.com/ClimateViz-integrator/climateviz-app/internal/tui"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

func newApplication() (*app.Application, error) {
	cfg, err := app.LoadConfig(app.DefaultConfigPath())
	if err != nil {
		return nil, err
	}
	return app.NewApplication(cfg)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()
	return ctx, cancel
}

// promptSecret reads one line from stdin when a value was not passed by flag.
// Flags stay available for scripting; interactive use never puts a password
// in shell history.
func promptSecret(label, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	fmt.Printf("%s: ", label)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("error reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func main() {
	root := &cobra.Command{
		Use:     "climaviz",
		Short:   "ClimaViz - cliente de pronóstico del clima",
		Long:    "ClimaViz is a terminal client for the ClimateViz forecast service.\n\nUse without arguments for the interactive UI, or with a subcommand for one-shot operations.",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApplication()
			if err != nil {
				return err
			}
			return tui.Run(application)
		},
	}

	loginCmd := &cobra.Command{
		Use:   "login [email]",
		Short: "Sign in and store the session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			application, err := newApplication()
			if err != nil {
				return err
			}
			email := loginEmail
			if len(args) > 0 {
				email = args[0]
			}
			if email == "" {
				if email, err = promptSecret("Correo", ""); err != nil {
					return err
				}
			}
			password, err := promptSecret("Contraseña", loginPassword)
			if err != nil {
				return err
			}
			if errs := app.ValidateLogin(email, password); len(errs) > 0 {
				return errs
			}
			profile, err := application.Auth.Login(ctx, email, password, loginRemember)
			if err != nil {
				return err
			}
			fmt.Printf("Sesión iniciada como %s <%s>\n", profile.Username, profile.Email)
			if !loginRemember {
				fmt.Println("La sesión no se recordará al reiniciar. Usa --remember para guardarla.")
			}
			return nil
		},
	}
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Account password (prompted if omitted)")
	loginCmd.Flags().BoolVarP(&loginRemember, "remember", "r", false, "Keep the session across restarts")
	root.AddCommand(loginCmd)

	logoutCmd := &cobra.Command{
		Use:   "logout",
		Short: "Clear every stored credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApplication()
			if err != nil {
				return err
			}
			application.Auth.Logout()
			fmt.Println("Sesión cerrada.")
			return nil
		},
	}
	root.AddCommand(logoutCmd)

	registerCmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			application, err := newApplication()
			if err != nil {
				return err
			}
			password, err := promptSecret("Contraseña", registerPassword)
			if err != nil {
				return err
			}
			confirm, err := promptSecret("Confirmar contraseña", registerConfirm)
			if err != nil {
				return err
			}
			res, err := application.Auth.Register(ctx, registerEmail, registerUsername, password, confirm, registerTerms)
			if err != nil {
				return err
			}
			fmt.Println(res.Message)
			return nil
		},
	}
	registerCmd.Flags().StringVar(&registerEmail, "email", "", "Account email")
	registerCmd.Flags().StringVar(&registerUsername, "username", "", "Username (at least 4 characters)")
	registerCmd.Flags().StringVar(&registerPassword, "password", "", "Password (prompted if omitted)")
	registerCmd.Flags().StringVar(&registerConfirm, "confirm", "", "Password confirmation (prompted if omitted)")
	registerCmd.Flags().BoolVar(&registerTerms, "accept-terms", false, "Accept the terms of service")
	root.AddCommand(registerCmd)

	whoamiCmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApplication()
			if err != nil {
				return err
			}
			if !application.Session.IsAuthenticated() {
				fmt.Printf("Sesión anónima (hasta %d días de pronóstico).\n", app.MaxDaysAnonymous)
				return nil
			}
			p := application.Session.Current().Profile
			fmt.Printf("Usuario: %s\nCorreo:  %s\nID:      %d\nPronóstico hasta %d días.\n",
				p.Username, p.Email, p.ID, app.MaxDaysAuthenticated)
			return nil
		},
	}
	root.AddCommand(whoamiCmd)

	forecastCmd := &cobra.Command{
		Use:   "forecast <city>",
		Short: "Fetch an hourly forecast",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			application, err := newApplication()
			if err != nil {
				return err
			}
			f, err := application.Forecast.Predict(ctx, args[0], forecastDays)
			if err != nil {
				return err
			}
			printForecast(f)
			return nil
		},
	}
	forecastCmd.Flags().IntVarP(&forecastDays, "days", "d", 1, "Days to forecast")
	root.AddCommand(forecastCmd)

	chatCmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Send one message to ClimateBot",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			application, err := newApplication()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				return tui.Run(application)
			}
			result, err := application.Chat.Send(ctx, args[0])
			if err != nil {
				return err
			}
			msgs := application.Chat.Messages()
			last := msgs[len(msgs)-1]
			fmt.Println(last.Text)

			if result == app.ResultAttachmentReady && last.Attachment != nil {
				if err := last.Attachment.SaveTo(last.Attachment.Filename); err != nil {
					return err
				}
				fmt.Printf("Reporte guardado en %s\n", last.Attachment.Filename)
			}
			return nil
		},
	}
	root.AddCommand(chatCmd)

	verifyCmd := &cobra.Command{
		Use:   "verify <code>",
		Short: "Verify an account email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			application, err := newApplication()
			if err != nil {
				return err
			}
			if err := application.Auth.VerifyEmail(ctx, args[0]); err != nil {
				return err
			}
			fmt.Println("Correo verificado. Ya puedes iniciar sesión.")
			return nil
		},
	}
	root.AddCommand(verifyCmd)

	forgotCmd := &cobra.Command{
		Use:   "forgot-password <email>",
		Short: "Request a password reset email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			application, err := newApplication()
			if err != nil {
				return err
			}
			if err := application.Auth.ForgotPassword(ctx, args[0]); err != nil {
				return err
			}
			fmt.Println("Revisa tu correo para restablecer la contraseña.")
			return nil
		},
	}
	root.AddCommand(forgotCmd)

	resetCmd := &cobra.Command{
		Use:   "reset-password <token>",
		Short: "Set a new password using a reset token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			application, err := newApplication()
			if err != nil {
				return err
			}
			if err := application.Auth.ValidateResetToken(ctx, args[0]); err != nil {
				return err
			}
			password, err := promptSecret("Nueva contraseña", resetPassword)
			if err != nil {
				return err
			}
			if err := application.Auth.ResetPassword(ctx, args[0], password); err != nil {
				return err
			}
			fmt.Println("Contraseña actualizada.")
			return nil
		},
	}
	resetCmd.Flags().StringVar(&resetPassword, "password", "", "New password (prompted if omitted)")
	root.AddCommand(resetCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printForecast(f app.Forecast) {
	fmt.Printf("%s", f.Location.Name)
	if f.Location.Region != "" || f.Location.Country != "" {
		fmt.Printf(" (%s, %s)", f.Location.Region, f.Location.Country)
	}
	fmt.Println()

	for _, day := range app.GroupByDay(f.Hours) {
		fmt.Printf("\n%s\n", day.Label)
		for _, h := range day.Hours {
			fmt.Printf("  %s  %5.1f°C  humedad %3.0f%%  viento %5.1f km/h  UV %4.1f  nubes %3.0f%%\n",
				h.Time.Format("15:04"), h.TempC, h.Humidity, h.WindKPH, h.UVIndex, h.CloudCover)
		}
	}
}

var (
	loginEmail    string
	loginPassword string
	loginRemember bool

	registerEmail    string
	registerUsername string
	registerPassword string
	registerConfirm  string
	registerTerms    bool

	forecastDays  int
	resetPassword string
)
