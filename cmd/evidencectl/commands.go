package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
)

func readPasscode(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func newPasscodeCmd(cli *client) *cobra.Command {
	return &cobra.Command{
		Use:   "passcode",
		Short: "Set or replace the vault passcode",
		RunE: func(cmd *cobra.Command, args []string) error {
			var sess struct {
				HasPasscode bool `json:"has_passcode"`
			}
			if err := cli.doJSON(http.MethodGet, "/api/auth/session", nil, &sess); err != nil {
				return err
			}
			var current string
			var err error
			if sess.HasPasscode {
				current, err = readPasscode("current passcode: ")
				if err != nil {
					return err
				}
			}
			next, err := readPasscode("new passcode (6+ digits): ")
			if err != nil {
				return err
			}
			body := map[string]string{"current": current, "passcode": next}
			if err := cli.doJSON(http.MethodPost, "/api/auth/passcode", body, nil); err != nil {
				return err
			}
			fmt.Println(green("passcode set"))
			return nil
		},
	}
}

func newUnlockCmd(cli *client) *cobra.Command {
	return &cobra.Command{
		Use:   "unlock",
		Short: "Verify the passcode and print a session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := readPasscode("passcode: ")
			if err != nil {
				return err
			}
			var tok struct {
				Token     string `json:"token"`
				ExpiresAt int64  `json:"expires_at"`
			}
			body := map[string]string{"passcode": code}
			if err := cli.doJSON(http.MethodPost, "/api/auth/passcode/verify", body, &tok); err != nil {
				return err
			}
			cli.token = tok.Token
			fmt.Fprintf(os.Stderr, "%s until %s\n", green("unlocked"),
				time.Unix(tok.ExpiresAt, 0).Format(time.Kitchen))
			fmt.Println(tok.Token)
			return nil
		},
	}
}

func newLockCmd(cli *client) *cobra.Command {
	return &cobra.Command{
		Use:   "lock",
		Short: "Lock the session immediately",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.doJSON(http.MethodPost, "/api/auth/lock", nil, nil); err != nil {
				return err
			}
			fmt.Println("locked")
			return nil
		},
	}
}

func newSessionCmd(cli *client) *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Show session and lockout state",
		RunE: func(cmd *cobra.Command, args []string) error {
			var sess struct {
				Authenticated    bool `json:"authenticated"`
				HasPasscode      bool `json:"has_passcode"`
				FailedAttempts   int  `json:"failed_attempts"`
				LockedForSeconds int  `json:"locked_for_seconds"`
			}
			if err := cli.doJSON(http.MethodGet, "/api/auth/session", nil, &sess); err != nil {
				return err
			}
			fmt.Printf("authenticated:   %v\n", sess.Authenticated)
			fmt.Printf("passcode set:    %v\n", sess.HasPasscode)
			fmt.Printf("failed attempts: %d\n", sess.FailedAttempts)
			if sess.LockedForSeconds > 0 {
				fmt.Printf("%s for %ds\n", yellow("locked"), sess.LockedForSeconds)
			}
			return nil
		},
	}
}

func newSaveCmd(cli *client) *cobra.Command {
	return &cobra.Command{
		Use:   "save <audio|photo|video> <file>",
		Short: "Encrypt a file into the vault and shred the original",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var sf struct {
				Name      string `json:"name"`
				SizeBytes int64  `json:"size_bytes"`
			}
			if err := cli.upload("/api/evidence/"+args[0], "file", args[1], nil, &sf); err != nil {
				return err
			}
			fmt.Printf("%s %s (%d bytes encrypted)\n", green("saved"), sf.Name, sf.SizeBytes)
			return nil
		},
	}
}

func newListCmd(cli *client) *cobra.Command {
	var mediaType string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List encrypted artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/evidence"
			if mediaType != "" {
				path += "?type=" + mediaType
			}
			var arts []struct {
				Name      string `json:"Name"`
				Type      string `json:"Type"`
				SizeBytes int64  `json:"SizeBytes"`
			}
			if err := cli.doJSON(http.MethodGet, path, nil, &arts); err != nil {
				return err
			}
			for _, a := range arts {
				fmt.Printf("%-6s %10d  %s\n", a.Type, a.SizeBytes, a.Name)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&mediaType, "type", "", "filter: audio, photo or video")
	return cmd
}

func newLoadCmd(cli *client) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "load <audio|photo|video> <name>",
		Short: "Decrypt an artifact to a local file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := cli.do(http.MethodGet, "/api/evidence/"+args[0]+"/"+args[1], nil, "")
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode >= 400 {
				return apiError(resp)
			}
			dst := out
			if dst == "" {
				dst = strings.TrimSuffix(args[1], ".encrypted")
			}
			f, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
			if err != nil {
				return err
			}
			n, err := io.Copy(f, resp.Body)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			fmt.Printf("%s %s (%d bytes)\n", green("decrypted to"), dst, n)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output path")
	return cmd
}

func newDeleteCmd(cli *client) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <audio|photo|video> <name>",
		Short: "Securely delete an artifact",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.doJSON(http.MethodDelete, "/api/evidence/"+args[0]+"/"+args[1], nil, nil); err != nil {
				return err
			}
			fmt.Println(green("deleted"))
			return nil
		},
	}
}

func newUsageCmd(cli *client) *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show encrypted bytes stored",
		RunE: func(cmd *cobra.Command, args []string) error {
			var body struct {
				Total int64 `json:"total_bytes_used"`
			}
			if err := cli.doJSON(http.MethodGet, "/api/usage", nil, &body); err != nil {
				return err
			}
			fmt.Printf("%.2f MiB in vault\n", float64(body.Total)/(1<<20))
			return nil
		},
	}
}

func newTranscribeCmd(cli *client) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Transcribe an audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond,
				spinner.WithWriter(os.Stderr), spinner.WithSuffix(" transcribing"))
			sp.Start()
			var res struct {
				Text   string `json:"text"`
				Method string `json:"method"`
			}
			extra := map[string]string{}
			if name != "" {
				extra["name"] = name
			}
			err := cli.upload("/api/transcribe", "audio", args[0], extra, &res)
			sp.Stop()
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "method: %s\n", res.Method)
			fmt.Println(res.Text)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "artifact name to index the transcript under")
	return cmd
}

func newSearchCmd(cli *client) *cobra.Command {
	return &cobra.Command{
		Use:   "search <terms...>",
		Short: "Search indexed transcripts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := strings.Join(args, " ")
			var body struct {
				Names []string `json:"names"`
			}
			if err := cli.doJSON(http.MethodGet, "/api/search?q="+q, nil, &body); err != nil {
				return err
			}
			for _, n := range body.Names {
				fmt.Println(n)
			}
			return nil
		},
	}
}

func newModelCmd(cli *client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Manage the offline speech model",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Show whether the model is downloaded",
			RunE: func(cmd *cobra.Command, args []string) error {
				var body struct {
					Downloaded bool `json:"downloaded"`
				}
				if err := cli.doJSON(http.MethodGet, "/api/model", nil, &body); err != nil {
					return err
				}
				if body.Downloaded {
					fmt.Println(green("downloaded"))
				} else {
					fmt.Println(yellow("not downloaded"))
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "download",
			Short: "Download the offline model",
			RunE: func(cmd *cobra.Command, args []string) error {
				sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond,
					spinner.WithWriter(os.Stderr), spinner.WithSuffix(" downloading model"))
				sp.Start()
				err := cli.doJSON(http.MethodPost, "/api/model/download", nil, nil)
				sp.Stop()
				if err != nil {
					return err
				}
				fmt.Println(green("model ready"))
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete",
			Short: "Remove the offline model",
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := cli.doJSON(http.MethodDelete, "/api/model", nil, nil); err != nil {
					return err
				}
				fmt.Println("model removed")
				return nil
			},
		},
	)
	return cmd
}

func newSyncCmd(cli *client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Push or pull encrypted artifacts",
	}
	run := func(direction string) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond,
				spinner.WithWriter(os.Stderr), spinner.WithSuffix(" syncing"))
			sp.Start()
			var st struct {
				Uploaded   int `json:"Uploaded"`
				Downloaded int `json:"Downloaded"`
				Skipped    int `json:"Skipped"`
			}
			err := cli.doJSON(http.MethodPost, "/api/sync/"+direction, nil, &st)
			sp.Stop()
			if err != nil {
				return err
			}
			fmt.Printf("%s: %d up, %d down, %d skipped\n",
				green("sync "+direction), st.Uploaded, st.Downloaded, st.Skipped)
			return nil
		}
	}
	cmd.AddCommand(
		&cobra.Command{Use: "push", Short: "Upload local artifacts", RunE: run("push")},
		&cobra.Command{Use: "pull", Short: "Download remote artifacts", RunE: run("pull")},
	)
	return cmd
}
