package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/linanwx/curo/channel"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Start an interactive chat session against the configured endpoint.

In a terminal this opens a full-screen UI: type and press Enter to send,
ctrl+o to attach an image, ctrl+c to quit. When input is piped, each line
is sent as a message and "/image <path>" attaches an image to the next one.

Examples:
  curo chat
  curo chat --endpoint http://127.0.0.1:8000/uploadfile
  printf 'Tell me a story\n' | curo chat`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ch := channel.NewChatChannel(newController(cfg))
	return ch.Run(ctx)
}
