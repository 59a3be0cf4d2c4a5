package channel

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/linanwx/curo/chat"
	"github.com/linanwx/curo/logger"
	"github.com/linanwx/curo/media"
	"github.com/linanwx/curo/termmd"
)

const imageCommand = "/image"

// PlainChannel runs a chat session over line-oriented I/O (pipes, scripts,
// dumb terminals). Each line is submitted; "/image <path>" attaches an image
// to the next submission.
type PlainChannel struct {
	ctrl   *chat.Controller
	in     io.Reader
	out    io.Writer
	prompt string
}

// NewPlainChannel creates a plain channel reading from in and writing to out.
func NewPlainChannel(ctrl *chat.Controller, in io.Reader, out io.Writer) *PlainChannel {
	return &PlainChannel{ctrl: ctrl, in: in, out: out, prompt: "curo> "}
}

func (c *PlainChannel) Name() string { return "plain" }

func (c *PlainChannel) Run(ctx context.Context) error {
	logger.Info("chat session started (plain mode)")

	lines := make(chan string)
	readErr := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		scanner.Buffer(make([]byte, 64*1024), 1<<20)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-stop:
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(c.out, c.prompt)
		select {
		case <-ctx.Done():
			fmt.Fprintln(c.out)
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(c.out)
				select {
				case err := <-readErr:
					if err != nil {
						return fmt.Errorf("read input: %w", err)
					}
				default:
				}
				return nil
			}
			if !c.handle(ctx, strings.TrimSpace(line)) {
				fmt.Fprintln(c.out, "Goodbye!")
				return nil
			}
		}
	}
}

// handle processes one input line and reports whether to keep going.
func (c *PlainChannel) handle(ctx context.Context, text string) bool {
	switch {
	case text == "":
		return true
	case isQuit(text):
		return false
	case text == imageCommand || strings.HasPrefix(text, imageCommand+" "):
		c.attach(strings.TrimSpace(strings.TrimPrefix(text, imageCommand)))
		return true
	}

	c.ctrl.Draft().SetText(text)
	res := c.ctrl.Submit(ctx)
	switch res.Status {
	case chat.StatusSucceeded:
		c.printEntries(res.Added)
	case chat.StatusFailed:
		fmt.Fprintf(c.out, "\nsend failed: %v\n\n", res.Err)
	}
	return true
}

func (c *PlainChannel) attach(path string) {
	if path == "" {
		// Empty selection leaves any prior attachment in place.
		if a := c.ctrl.Draft().Attachment(); a != nil {
			fmt.Fprintf(c.out, "attached: %s (%s)\n", a.Name, a.MIMEType)
		} else {
			fmt.Fprintln(c.out, "usage: /image <path>")
		}
		return
	}
	a, err := media.Load(path)
	if err != nil {
		fmt.Fprintf(c.out, "cannot attach: %v\n", err)
		return
	}
	c.ctrl.Draft().SelectAttachment(a)
	fmt.Fprintf(c.out, "attached: %s (%s, %d bytes)\n", a.Name, a.MIMEType, a.Size())
}

// printEntries prints the bot reply; the user's own lines are already on
// screen.
func (c *PlainChannel) printEntries(entries []chat.Entry) {
	for _, e := range entries {
		if e.Sender != chat.SenderBot {
			continue
		}
		fmt.Fprintln(c.out)
		fmt.Fprintln(c.out, termmd.Plain(e.Payload))
		fmt.Fprintln(c.out)
	}
}
