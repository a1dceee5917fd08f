package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"jobassist/internal/bootstrap"
	"jobassist/internal/documents"
	"jobassist/internal/extract"
	"jobassist/internal/session"
	"jobassist/internal/wizard"
	"jobassist/resume/model"
	"jobassist/resume/render"
)

var errUsage = errors.New("usage")

type buildFunc func(ctx context.Context) (*bootstrap.App, error)

type cli struct {
	ctx    context.Context
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer
	build  buildFunc
	app    *bootstrap.App
}

type command struct {
	summary string
	run     func(c *cli, args []string) error
}

var commands = map[string]command{
	"apply":         {"walk the input wizard and submit an application", (*cli).apply},
	"chat":          {"send messages in the active conversation", (*cli).chat},
	"show":          {"print the current content of a document", (*cli).show},
	"history":       {"list the revisions of a document", (*cli).history},
	"restore":       {"print a past revision, optionally saving it as a new edit", (*cli).restore},
	"compare":       {"diff two revisions of a document", (*cli).compare},
	"edit":          {"save a document from a file", (*cli).edit},
	"export":        {"render a document as txt, docx or pdf", (*cli).export},
	"conversations": {"list past conversations", (*cli).conversations},
	"open":          {"make a past conversation active", (*cli).open},
	"delete":        {"delete a conversation", (*cli).deleteConversation},
	"new":           {"forget the active conversation", (*cli).reset},
}

func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer, build buildFunc) int {
	c := &cli{ctx: ctx, in: bufio.NewReader(in), out: out, errOut: errOut, build: build}
	defer c.close()

	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		c.usage()
		if len(args) == 0 {
			return 2
		}
		return 0
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(errOut, "unknown command %q\n", args[0])
		c.usage()
		return 2
	}
	if err := cmd.run(c, args[1:]); err != nil {
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			return 2
		}
		fmt.Fprintf(errOut, "%s: %s\n", args[0], describe(err))
		return 1
	}
	return 0
}

func (c *cli) usage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(c.errOut, "usage: jobassist <command> [flags]")
	for _, name := range names {
		fmt.Fprintf(c.errOut, "  %-14s %s\n", name, commands[name].summary)
	}
}

func (c *cli) close() {
	if c.app != nil {
		c.app.Close()
	}
}

func (c *cli) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	return fs
}

func (c *cli) core() (*bootstrap.App, error) {
	if c.app != nil {
		return c.app, nil
	}
	app, err := c.build(c.ctx)
	if err != nil {
		return nil, err
	}
	c.app = app
	return app, nil
}

func (c *cli) active() (*session.Session, error) {
	app, err := c.core()
	if err != nil {
		return nil, err
	}
	return app.Sessions.Restore(c.ctx)
}

func (c *cli) apply(args []string) error {
	fs := c.flags("apply")
	resumeFile := fs.String("resume-file", "", "read the resume from a PDF, DOCX or text file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	w := wizard.New()
	if *resumeFile != "" {
		text, err := readResumeFile(c.ctx, *resumeFile)
		if err != nil {
			return err
		}
		if err := w.SetField(wizard.StepResume, text); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Loaded resume from %s (%d characters)\n", filepath.Base(*resumeFile), len([]rune(text)))
	}

	fmt.Fprintln(c.out, "Finish each field with a line containing only \".\". Type :back to return to the previous field.")
	for {
		step := w.Step()
		if step == wizard.StepDone {
			break
		}
		p := w.Progress()
		fmt.Fprintf(c.out, "\n[%d/%d] %s (at least %d characters)\n", p.Step, p.Total, step.Title(), step.MinLength())
		if existing := w.Fields().Get(step); existing != "" {
			fmt.Fprintln(c.out, "Press . to keep the current value.")
		}

		text, back, err := c.readBlock()
		if err != nil {
			return err
		}
		if back {
			if err := w.Back(); err != nil {
				fmt.Fprintln(c.out, err)
			}
			continue
		}
		if strings.TrimSpace(text) != "" {
			if err := w.Set(text); err != nil {
				return err
			}
		}

		if step != wizard.StepPersonalSummary {
			if err := w.Next(); err != nil {
				fmt.Fprintln(c.out, describe(err))
			}
			continue
		}

		app, err := c.core()
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, "Submitting application...")
		res, err := w.Submit(c.ctx, app.Backend)
		if err != nil {
			var verr *wizard.ValidationError
			if errors.As(err, &verr) {
				fmt.Fprintln(c.out, describe(err))
				continue
			}
			return err
		}
		sess, err := app.Sessions.Start(c.ctx, res)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Conversation %s\n\n%s\n", sess.ID(), sess.Summary())
		printDocuments(c.out, sess.Documents())
	}
	return nil
}

// readBlock reads lines up to a lone ".". EOF ends the block when it has content.
func (c *cli) readBlock() (string, bool, error) {
	var lines []string
	for {
		line, err := c.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", false, err
		}
		trimmed := strings.TrimRight(line, "\r\n")
		switch {
		case len(lines) == 0 && strings.TrimSpace(trimmed) == ":back":
			return "", true, nil
		case trimmed == ".":
			return strings.Join(lines, "\n"), false, nil
		}
		if line != "" {
			lines = append(lines, trimmed)
		}
		if errors.Is(err, io.EOF) {
			if len(lines) == 0 {
				return "", false, io.ErrUnexpectedEOF
			}
			return strings.Join(lines, "\n"), false, nil
		}
	}
}

func (c *cli) chat(args []string) error {
	fs := c.flags("chat")
	message := fs.String("m", "", "send one message and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	sess, err := c.active()
	if err != nil {
		return err
	}
	if strings.TrimSpace(*message) != "" {
		return c.send(sess, *message)
	}

	fmt.Fprintf(c.out, "Conversation %s. One message per line, /resend retries the last failure, /quit exits.\n", sess.ID())
	for {
		fmt.Fprint(c.out, "> ")
		line, err := c.in.ReadString('\n')
		text := strings.TrimSpace(line)
		switch {
		case text == "/quit":
			return nil
		case text == "/resend":
			if rerr := c.resend(sess); rerr != nil {
				fmt.Fprintln(c.out, describe(rerr))
			}
		case text != "":
			// Failures stay in the transcript and the loop continues.
			_ = c.send(sess, text)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(c.out)
				return nil
			}
			return err
		}
	}
}

func (c *cli) send(sess *session.Session, text string) error {
	res, err := sess.Send(c.ctx, text)
	if err != nil {
		fmt.Fprintf(c.out, "! not delivered: %s\n", describe(err))
		return err
	}
	printSendResult(c.out, res.Reply, res.Revisions)
	return nil
}

func (c *cli) resend(sess *session.Session) error {
	msgs := sess.Transcript().Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role != model.RoleUser || msgs[i].Status != model.StatusFailed {
			continue
		}
		res, err := sess.Resend(c.ctx, msgs[i].ID)
		if err != nil {
			fmt.Fprintf(c.out, "! not delivered: %s\n", describe(err))
			return err
		}
		printSendResult(c.out, res.Reply, res.Revisions)
		return nil
	}
	return errors.New("no failed message to resend")
}

func (c *cli) show(args []string) error {
	fs := c.flags("show")
	docType := fs.String("type", string(model.DocumentResume), "resume or cover_letter")
	if err := fs.Parse(args); err != nil {
		return err
	}
	dt, err := model.ParseDocumentType(*docType)
	if err != nil {
		return err
	}
	sess, err := c.active()
	if err != nil {
		return err
	}
	content, err := sess.Document(dt)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, content)
	return nil
}

func (c *cli) history(args []string) error {
	fs := c.flags("history")
	docType := fs.String("type", string(model.DocumentResume), "resume or cover_letter")
	if err := fs.Parse(args); err != nil {
		return err
	}
	dt, err := model.ParseDocumentType(*docType)
	if err != nil {
		return err
	}
	sess, err := c.active()
	if err != nil {
		return err
	}
	revs, err := sess.History(c.ctx, dt)
	if err != nil {
		return err
	}
	if len(revs) == 0 {
		fmt.Fprintf(c.out, "No revisions for %s\n", dt.Title())
		return nil
	}
	for i, rev := range revs {
		marker := " "
		if i == len(revs)-1 {
			marker = "*"
		}
		fmt.Fprintf(c.out, "%s %-36s %s  %s\n", marker, rev.ID, rev.Timestamp.Format("2006-01-02 15:04"), rev.Feedback)
	}
	return nil
}

func (c *cli) restore(args []string) error {
	fs := c.flags("restore")
	docType := fs.String("type", string(model.DocumentResume), "resume or cover_letter")
	id := fs.String("id", "", "revision id")
	save := fs.Bool("save", false, "save the restored content as a new revision")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*id) == "" {
		fmt.Fprintln(c.errOut, "restore: -id is required")
		return errUsage
	}
	dt, err := model.ParseDocumentType(*docType)
	if err != nil {
		return err
	}
	sess, err := c.active()
	if err != nil {
		return err
	}
	if _, err := sess.History(c.ctx, dt); err != nil {
		return err
	}
	content, err := sess.Restore(dt, *id)
	if err != nil {
		return err
	}
	if !*save {
		fmt.Fprintln(c.out, content)
		return nil
	}
	rev, err := sess.SaveDocument(c.ctx, dt, content)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Saved %s as revision %s\n", dt.Title(), rev.ID)
	return nil
}

func (c *cli) compare(args []string) error {
	fs := c.flags("compare")
	docType := fs.String("type", string(model.DocumentResume), "resume or cover_letter")
	from := fs.String("from", "", "older revision id")
	to := fs.String("to", "", "newer revision id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *from == "" || *to == "" {
		fmt.Fprintln(c.errOut, "compare: -from and -to are required")
		return errUsage
	}
	dt, err := model.ParseDocumentType(*docType)
	if err != nil {
		return err
	}
	sess, err := c.active()
	if err != nil {
		return err
	}
	if _, err := sess.History(c.ctx, dt); err != nil {
		return err
	}
	cmp, err := sess.Compare(dt, *from, *to)
	if err != nil {
		return err
	}
	printComparison(c.out, cmp)
	return nil
}

func (c *cli) edit(args []string) error {
	fs := c.flags("edit")
	docType := fs.String("type", string(model.DocumentResume), "resume or cover_letter")
	file := fs.String("file", "", "markdown file with the new content")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		fmt.Fprintln(c.errOut, "edit: -file is required")
		return errUsage
	}
	dt, err := model.ParseDocumentType(*docType)
	if err != nil {
		return err
	}
	content, err := os.ReadFile(*file)
	if err != nil {
		return err
	}
	sess, err := c.active()
	if err != nil {
		return err
	}
	rev, err := sess.SaveDocument(c.ctx, dt, string(content))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Saved %s as revision %s\n", dt.Title(), rev.ID)
	return nil
}

func (c *cli) export(args []string) error {
	fs := c.flags("export")
	docType := fs.String("type", string(model.DocumentResume), "resume or cover_letter")
	format := fs.String("format", string(render.FormatText), "txt, docx or pdf")
	out := fs.String("out", "", "output path (defaults to the document file name)")
	in := fs.String("in", "", "render a markdown file instead of the active conversation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	f, err := render.ParseFormat(*format)
	if err != nil {
		return err
	}
	dt, err := model.ParseDocumentType(*docType)
	if err != nil {
		return err
	}

	var art render.Artifact
	name := dt.FileStem()
	if *in != "" {
		md, err := os.ReadFile(*in)
		if err != nil {
			return err
		}
		if art, err = render.Export(f, string(md)); err != nil {
			return err
		}
		name = strings.TrimSuffix(filepath.Base(*in), filepath.Ext(*in))
	} else {
		app, err := c.core()
		if err != nil {
			return err
		}
		sess, err := app.Sessions.Restore(c.ctx)
		if err != nil {
			return err
		}
		// Load history so the export records which revision it came from.
		if _, err := sess.History(c.ctx, dt); err != nil {
			return err
		}
		svc := &documents.Service{Sessions: app.Sessions}
		rendered, err := svc.Render(c.ctx, dt, f)
		if err != nil {
			return err
		}
		art = rendered.Artifact
	}

	path := *out
	if path == "" {
		path = name + art.Extension
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, art.Data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Wrote %s (%d bytes)\n", path, len(art.Data))
	return nil
}

func (c *cli) conversations(args []string) error {
	fs := c.flags("conversations")
	limit := fs.Int("limit", 20, "maximum number of conversations")
	offset := fs.Int("offset", 0, "number of conversations to skip")
	if err := fs.Parse(args); err != nil {
		return err
	}
	app, err := c.core()
	if err != nil {
		return err
	}
	items, err := app.Backend.ListConversations(c.ctx, *limit, *offset)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(c.out, "No conversations")
		return nil
	}
	for _, it := range items {
		fmt.Fprintf(c.out, "%s  %s\n", it.ID, firstNonEmpty(it.UpdatedAt, it.CreatedAt))
	}
	return nil
}

func (c *cli) open(args []string) error {
	fs := c.flags("open")
	id := fs.String("id", "", "conversation id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*id) == "" {
		fmt.Fprintln(c.errOut, "open: -id is required")
		return errUsage
	}
	app, err := c.core()
	if err != nil {
		return err
	}
	sess, err := app.Sessions.Open(c.ctx, *id)
	if err != nil {
		return err
	}
	for _, m := range sess.Transcript().Messages() {
		fmt.Fprintf(c.out, "%s: %s\n", m.Role, m.Content)
	}
	fmt.Fprintf(c.out, "Conversation %s is active\n", sess.ID())
	return nil
}

func (c *cli) deleteConversation(args []string) error {
	fs := c.flags("delete")
	id := fs.String("id", "", "conversation id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*id) == "" {
		fmt.Fprintln(c.errOut, "delete: -id is required")
		return errUsage
	}
	app, err := c.core()
	if err != nil {
		return err
	}
	res, err := app.Backend.DeleteConversation(c.ctx, *id)
	if err != nil {
		return err
	}
	if err := app.Sessions.Forget(c.ctx, *id); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Deleted %s (%s)\n", *id, res.Status)
	return nil
}

func (c *cli) reset(args []string) error {
	if err := c.flags("new").Parse(args); err != nil {
		return err
	}
	app, err := c.core()
	if err != nil {
		return err
	}
	if err := app.Sessions.Reset(c.ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Cleared the active conversation. Run jobassist apply to start a new one.")
	return nil
}

func readResumeFile(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	mime := extract.DetectMIME("", filepath.Base(path), data)
	if mime == extract.MIMEPDF || mime == extract.MIMEDOCX {
		return extract.TextFromBytes(ctx, data, mime, filepath.Base(path))
	}
	return string(data), nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func describe(err error) string {
	switch {
	case errors.Is(err, session.ErrNoActiveSession):
		return "no active conversation, run jobassist apply or jobassist open first"
	case errors.Is(err, io.ErrUnexpectedEOF):
		return "input ended before the wizard was complete"
	case errors.Is(err, context.Canceled):
		return "interrupted"
	}
	return err.Error()
}
