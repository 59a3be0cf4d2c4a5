package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/linanwx/curo/chat"
	"github.com/linanwx/curo/media"
	"github.com/linanwx/curo/termmd"
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send one message and print the reply",
	Long: `Send a single message, optionally with an image, and print the reply.

Examples:
  curo send -m "Tell me a story about a fox"
  curo send -m "What is in this picture?" --image ./cat.png`,
	RunE: runSend,
}

var (
	sendMessage string
	sendImage   string
)

func init() {
	sendCmd.Flags().StringVarP(&sendMessage, "message", "m", "", "Message text (required)")
	sendCmd.Flags().StringVar(&sendImage, "image", "", "Path to an image to attach")
	_ = sendCmd.MarkFlagRequired("message")
	rootCmd.AddCommand(sendCmd)
}

func runSend(_ *cobra.Command, _ []string) error {
	if strings.TrimSpace(sendMessage) == "" {
		return errors.New("message is empty")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctrl := newController(cfg)
	ctrl.Draft().SetText(sendMessage)
	if sendImage != "" {
		a, err := media.Load(sendImage)
		if err != nil {
			return err
		}
		ctrl.Draft().SelectAttachment(a)
	}

	res := ctrl.Submit(context.Background())
	if res.Status != chat.StatusSucceeded {
		if res.Err != nil {
			return fmt.Errorf("send failed: %w", res.Err)
		}
		return fmt.Errorf("send %s", res.Status)
	}

	render := termmd.Plain
	if term.IsTerminal(int(os.Stdout.Fd())) {
		render = termmd.Render
	}
	for _, e := range res.Added {
		if e.Sender == chat.SenderBot {
			fmt.Println(render(e.Payload))
		}
	}
	return nil
}
