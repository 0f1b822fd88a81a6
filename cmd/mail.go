package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/teemow/autogmail/internal/backend"
	"github.com/teemow/autogmail/internal/dashboard"
	"github.com/teemow/autogmail/internal/tools/knowledge_tools"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newInboxCmd() *cobra.Command {
	var (
		maxResults int
		sent       bool
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "List the newest inbox emails",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, cmd, storePersistent)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			if sent {
				refs, err := a.backend.ListSent(ctx, maxResults)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(out, refs)
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tTHREAD")
				for _, r := range refs {
					fmt.Fprintf(tw, "%s\t%s\n", r.ID, r.ThreadID)
				}
				return tw.Flush()
			}

			emails, err := a.backend.ListInbox(ctx, maxResults)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(out, emails)
			}
			if len(emails) == 0 {
				fmt.Fprintln(out, "Inbox is empty.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tFROM\tSUBJECT")
			for _, e := range emails {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", e.ID, dashboard.DisplayName(e.Sender), e.Subject)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&maxResults, "max", backend.DefaultInboxSize, "Maximum number of emails to list")
	cmd.Flags().BoolVar(&sent, "sent", false, "List sent mail instead of the inbox")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")

	return cmd
}

func newEmailCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "email <id>",
		Short: "Show the full body of an email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, cmd, storePersistent)
			if err != nil {
				return err
			}
			defer a.Close()

			email, err := a.backend.GetEmail(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, email)
			}
			fmt.Fprintf(out, "From:    %s\nSubject: %s\n\n%s\n", email.Sender, email.Subject, email.Text())
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")

	return cmd
}

func newDraftCmd() *cobra.Command {
	var (
		save        bool
		showContext bool
	)

	cmd := &cobra.Command{
		Use:   "draft <id>",
		Short: "Generate a reply to an email",
		Long: `Generate a reply to an email using the company knowledge base.

The draft is printed. With --save it is also stored as a Gmail draft addressed
to the original sender with a "Re: " subject.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, cmd, storePersistent)
			if err != nil {
				return err
			}
			defer a.Close()

			email, err := a.backend.GetEmail(ctx, args[0])
			if err != nil {
				return err
			}
			reply, err := a.backend.GenerateDraft(ctx,
				dashboard.ComposeEmailText(email.Subject, email.Sender, email.Text()))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, reply.Draft)
			if showContext && reply.ContextUsed != "" {
				fmt.Fprintf(out, "\n--- Context used ---\n%s\n", reply.ContextUsed)
			}

			if !save {
				return nil
			}
			saved, err := a.backend.SaveDraft(ctx, backend.DraftRequest{
				Recipient: dashboard.ExtractRecipient(email.Sender),
				Subject:   dashboard.ReplySubject(email.Subject),
				Body:      reply.Draft,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%s (draft ID: %s)\n", dashboard.MsgDraftSaved, saved.DraftID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "Save the reply as a Gmail draft")
	cmd.Flags().BoolVar(&showContext, "show-context", false, "Print the knowledge base context used for the reply")

	return cmd
}

func newSaveDraftCmd() *cobra.Command {
	var (
		to       string
		subject  string
		body     string
		bodyFile string
	)

	cmd := &cobra.Command{
		Use:   "save-draft",
		Short: "Save a draft in Gmail",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if bodyFile != "" {
				data, err := readBody(cmd, bodyFile)
				if err != nil {
					return err
				}
				body = data
			}
			if strings.TrimSpace(body) == "" {
				return errors.New("a body is required (--body or --body-file)")
			}

			ctx := cmd.Context()
			a, err := bootstrap(ctx, cmd, storePersistent)
			if err != nil {
				return err
			}
			defer a.Close()

			saved, err := a.backend.SaveDraft(ctx, backend.DraftRequest{
				Recipient: dashboard.ExtractRecipient(to),
				Subject:   subject,
				Body:      body,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (draft ID: %s)\n", dashboard.MsgDraftSaved, saved.DraftID)
			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Recipient address")
	cmd.Flags().StringVar(&subject, "subject", "", "Subject")
	cmd.Flags().StringVar(&body, "body", "", "Body")
	cmd.Flags().StringVar(&bodyFile, "body-file", "", "Read the body from a file ('-' for stdin)")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func readBody(cmd *cobra.Command, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	return string(data), nil
}

func newUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a policy document to the knowledge base",
		Long: `Upload a company policy document (PDF, DOCX or TXT) to the knowledge base.
The backend extracts its text and indexes it for drafting replies.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := knowledge_tools.CheckDocument(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := bootstrap(ctx, cmd, storePersistent)
			if err != nil {
				return err
			}
			defer a.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			res, err := a.backend.UploadDocument(ctx, name, f)
			if err != nil {
				return fmt.Errorf("%s: %w", dashboard.MsgUploadFailed, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s: %s (%d characters)\n",
				dashboard.MsgUploadSucceeded, res.Filename, res.Status, res.CharCount)
			return nil
		},
	}
}

func newSyncCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Index recent sent mail into the knowledge base",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, cmd, storePersistent)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.backend.SyncSent(ctx, limit)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dashboard.SyncedMessage(res.SyncedCount))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", backend.DefaultSyncLimit, "Number of sent emails to index")

	return cmd
}
