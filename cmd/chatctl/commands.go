package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/upb/multichat/services/chat"
	"github.com/upb/multichat/services/files"
	"github.com/upb/multichat/services/providers"
)

type cmdProviders struct{}

func (cmd *cmdProviders) Run(rt *cliEnv) error {
	tw := tabwriter.NewWriter(rt.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCONFIGURED")
	for _, p := range rt.deps.Dispatch.ListProviders() {
		fmt.Fprintf(tw, "%s\t%s\t%t\n", p.ID, p.Name, p.Configured)
	}
	return tw.Flush()
}

type cmdModels struct {
	Provider string `arg:"" help:"Provider id as listed by 'providers'."`
}

func (cmd *cmdModels) Run(rt *cliEnv) error {
	if _, ok := rt.deps.Catalog.Provider(cmd.Provider); !ok {
		return fmt.Errorf("unknown provider %q", cmd.Provider)
	}
	tw := tabwriter.NewWriter(rt.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME")
	for _, m := range rt.deps.Dispatch.ListModels(cmd.Provider) {
		fmt.Fprintf(tw, "%s\t%s\n", m.ID, m.Name)
	}
	return tw.Flush()
}

type cmdPersonas struct{}

func (cmd *cmdPersonas) Run(rt *cliEnv) error {
	tw := tabwriter.NewWriter(rt.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDESCRIPTION")
	for _, p := range rt.deps.Dispatch.ListPersonas() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, p.Name, firstLine(p.Description))
	}
	return tw.Flush()
}

type cmdAsk struct {
	Provider string   `short:"p" required:"" help:"Provider id."`
	Model    string   `short:"m" required:"" help:"Model id."`
	Persona  string   `short:"P" help:"Persona id."`
	Files    []string `name:"file" short:"f" help:"Attach a file; repeatable."`
	Chat     string   `help:"Continue the conversation with this id."`
	Prompt   []string `arg:"" help:"Message text."`
}

func (cmd *cmdAsk) Run(rt *cliEnv) error {
	var atts []providers.Attachment
	if len(cmd.Files) > 0 {
		if len(cmd.Files) > rt.deps.Files.MaxFiles() {
			return fmt.Errorf("%w: %d (max: %d)", files.ErrTooManyFiles, len(cmd.Files), rt.deps.Files.MaxFiles())
		}
		for _, path := range cmd.Files {
			atts = append(atts, rt.deps.Files.ProcessPath(path))
		}
		fmt.Fprintln(rt.stderr, files.StatusMessage(atts))
		atts = files.Usable(atts)
	}

	reply, err := rt.deps.Chat.Send(rt.ctx, &chat.Session{
		ChatID:      cmd.Chat,
		ProviderID:  cmd.Provider,
		ModelID:     cmd.Model,
		PersonaID:   cmd.Persona,
		Attachments: atts,
	}, strings.Join(cmd.Prompt, " "))
	if err != nil {
		return err
	}

	fmt.Fprintln(rt.stdout, reply.Result.Text)
	fmt.Fprintf(rt.stderr, "chat: %s\n", reply.ChatID)
	if reply.Result.Failed() {
		return fmt.Errorf("%s", reply.Result.Error)
	}
	return nil
}

type cmdHistory struct {
	Ls   cmdHistoryLs   `cmd:"" help:"List conversations, newest first."`
	Show cmdHistoryShow `cmd:"" help:"Print a conversation."`
	Rm   cmdHistoryRm   `cmd:"" help:"Delete a conversation."`
}

type cmdHistoryLs struct{}

func (cmd *cmdHistoryLs) Run(rt *cliEnv) error {
	chats, err := rt.deps.Chat.List(rt.ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(rt.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUPDATED\tPROVIDER\tMODEL\tPERSONA")
	for _, c := range chats {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			c.ChatID, c.Timestamp.Local().Format(time.DateTime), c.Provider, c.Model, c.Persona)
	}
	return tw.Flush()
}

type cmdHistoryShow struct {
	ID string `arg:"" help:"Chat id."`
}

func (cmd *cmdHistoryShow) Run(rt *cliEnv) error {
	record, err := rt.deps.Chat.Resume(rt.ctx, cmd.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(rt.stdout, "# %s (%s / %s", record.ChatID, record.Provider, record.Model)
	if record.Persona != "" {
		fmt.Fprintf(rt.stdout, " / %s", record.Persona)
	}
	fmt.Fprintln(rt.stdout, ")")
	for _, m := range record.Messages {
		fmt.Fprintf(rt.stdout, "\n[%s]\n%s\n", m.Role, m.Content)
	}
	return nil
}

type cmdHistoryRm struct {
	IDs []string `arg:"" name:"id" help:"Chat ids to delete."`
}

func (cmd *cmdHistoryRm) Run(rt *cliEnv) error {
	for _, id := range cmd.IDs {
		if err := rt.deps.Chat.Delete(rt.ctx, id); err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}
		fmt.Fprintf(rt.stdout, "deleted %s\n", id)
	}
	return nil
}

type cmdVersion struct{}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
