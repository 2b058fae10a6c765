package app

import (
	"context"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strconv"

	"github.com/pavohq/folio/pkg/authsdk"
	"github.com/pavohq/folio/pkg/camx"
)

func (app *Application) cmdRegister(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	username := fs.String("username", "", "display name")
	age := fs.Int("age", 0, "age in years")
	imagePath := fs.String("image", "", "optional photo to enroll a facial biometric")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *username == "" {
		return fmt.Errorf("register: --email and --username are required")
	}

	password, err := app.prompt("password: ")
	if err != nil {
		return err
	}

	req := authsdk.RegisterRequest{
		Email:    *email,
		Username: *username,
		Password: password,
		Age:      *age,
	}
	if *imagePath != "" {
		frame, err := loadFrame(*imagePath)
		if err != nil {
			return err
		}
		req.FaceID, err = camx.EncodeJPEGDataURI(frame)
		if err != nil {
			return err
		}
	}

	res, err := app.client.Register(ctx, req)
	if err != nil {
		return err
	}
	if res.Status != authsdk.StatusAuthenticated {
		return fmt.Errorf("registration failed: %s", res.Reason)
	}
	fmt.Fprintf(app.out, "account created, signed in as %s\n", res.User.Username)
	return nil
}

func (app *Application) cmdLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return fmt.Errorf("login: --email is required")
	}

	password, err := app.prompt("password: ")
	if err != nil {
		return err
	}

	res, err := app.client.Login(ctx, *email, password)
	if err != nil {
		return err
	}

	switch res.Status {
	case authsdk.StatusAuthenticated:
		fmt.Fprintf(app.out, "signed in as %s\n", res.User.Username)
		return nil
	case authsdk.StatusTwoFactorRequired:
		return app.completeTwoFactor(ctx, res)
	default:
		return fmt.Errorf("login failed: %s", res.Reason)
	}
}

// completeTwoFactor prompts for TOTP codes until the challenge resolves. A
// rejected code keeps the challenge alive, so the user retries without
// re-entering the password.
func (app *Application) completeTwoFactor(ctx context.Context, fork *authsdk.LoginResult) error {
	message := fork.Message
	for attempt := 0; attempt < 3; attempt++ {
		code, err := app.prompt(message + ": ")
		if err != nil {
			return err
		}

		res, err := app.client.VerifyTwoFactor(ctx, code, fork.TempToken)
		if err != nil {
			return err
		}
		if res.Status == authsdk.StatusAuthenticated {
			fmt.Fprintf(app.out, "signed in as %s\n", res.User.Username)
			return nil
		}
		message = res.Reason
	}

	if err := app.client.Challenge().Cancel(); err != nil {
		app.logger.Warn("failed to cancel challenge", "error", err)
	}
	return fmt.Errorf("two-factor verification failed")
}

func (app *Application) cmdFaceLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("face-login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	imagePath := fs.String("image", "", "photo to submit for verification")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *imagePath == "" {
		return fmt.Errorf("face-login: --email and --image are required")
	}

	err := app.captureAndSubmit(ctx, *imagePath, func(ctx context.Context, dataURI string) error {
		res, err := app.client.FaceVerify(ctx, *email, dataURI)
		if err != nil {
			return err
		}
		if res.Status != authsdk.StatusAuthenticated {
			return fmt.Errorf("face verification failed: %s", res.Reason)
		}
		return nil
	})
	if err != nil {
		return err
	}

	user := app.client.User(ctx)
	if user != nil {
		fmt.Fprintf(app.out, "signed in as %s\n", user.Username)
	}
	return nil
}

func (app *Application) cmdFaceEnroll(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("face-enroll", flag.ContinueOnError)
	imagePath := fs.String("image", "", "photo to enroll")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *imagePath == "" {
		return fmt.Errorf("face-enroll: --image is required")
	}

	err := app.captureAndSubmit(ctx, *imagePath, func(ctx context.Context, dataURI string) error {
		return app.client.FaceEnroll(ctx, dataURI)
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(app.out, "face enrolled")
	return nil
}

// captureAndSubmit runs one frame through the capture machine: acquire the
// camera, grab a frame, hand it to submit, and release the stream no matter
// how it ends.
func (app *Application) captureAndSubmit(ctx context.Context, imagePath string, submit camx.SubmitFunc) error {
	frame, err := loadFrame(imagePath)
	if err != nil {
		return err
	}

	device := &camx.StaticDevice{Frame: frame}
	capture := camx.NewCapture(device, app.cameraConstraints(), submit,
		camx.WithCaptureLogger(app.logger))
	defer capture.Close()

	if err := capture.Start(ctx); err != nil {
		if msg := capture.Message(); msg != "" {
			return fmt.Errorf("%s", msg)
		}
		return err
	}
	return capture.Submit(ctx)
}

func (app *Application) cmdSetupTwoFactor(ctx context.Context, args []string) error {
	if err := noFlags("setup-2fa", args); err != nil {
		return err
	}

	setup, err := app.client.GenerateTwoFactor(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(app.out, "scan this provisioning URI with your authenticator app:\n\n  %s\n\n", setup.ProvisioningURI)
	fmt.Fprintf(app.out, "or enter the secret manually: %s (issuer %s, account %s)\n",
		setup.Secret, setup.Issuer, setup.Account)
	return nil
}

func (app *Application) cmdDisableTwoFactor(ctx context.Context, args []string) error {
	if err := noFlags("disable-2fa", args); err != nil {
		return err
	}

	password, err := app.prompt("password: ")
	if err != nil {
		return err
	}
	if err := app.client.DisableTwoFactor(ctx, password); err != nil {
		return err
	}
	fmt.Fprintln(app.out, "two-factor authentication disabled")
	return nil
}

func (app *Application) cmdWhoami(ctx context.Context, args []string) error {
	if err := noFlags("whoami", args); err != nil {
		return err
	}

	user, err := app.client.FetchProfile(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(app.out, "id:        %d\n", user.ID)
	fmt.Fprintf(app.out, "username:  %s\n", user.Username)
	fmt.Fprintf(app.out, "email:     %s\n", user.Email)
	fmt.Fprintf(app.out, "face id:   %s\n", strconv.FormatBool(user.HasFaceID))
	fmt.Fprintf(app.out, "2fa:       %s\n", strconv.FormatBool(user.TwoFactorEnabled))
	if app.sessions.Degraded() {
		fmt.Fprintln(app.out, "note: session storage is degraded, this session will not survive a restart")
	}
	return nil
}

func (app *Application) cmdUpdateProfile(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("update-profile", flag.ContinueOnError)
	username := fs.String("username", "", "new display name")
	email := fs.String("email", "", "new email address")
	newPassword := fs.String("new-password", "", "new password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	current := app.client.User(ctx)
	if current == nil {
		return authsdk.ErrNotAuthenticated
	}
	if *username == "" {
		*username = current.Username
	}
	if *email == "" {
		*email = current.Email
	}

	password, err := app.prompt("current password: ")
	if err != nil {
		return err
	}

	user, err := app.client.UpdateProfile(ctx, authsdk.UpdateProfileRequest{
		Username:        *username,
		Email:           *email,
		CurrentPassword: password,
		NewPassword:     *newPassword,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(app.out, "profile updated for %s\n", user.Username)
	return nil
}

func (app *Application) cmdLogout(ctx context.Context, args []string) error {
	if err := noFlags("logout", args); err != nil {
		return err
	}

	if err := app.client.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(app.out, "signed out")
	return nil
}

func noFlags(cmd string, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("%s: takes no arguments", cmd)
	}
	return nil
}

// loadFrame decodes a still image from disk to feed the capture device.
func loadFrame(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	frame, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return frame, nil
}
