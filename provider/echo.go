package provider

import (
	"context"
	"fmt"
)

func init() {
	RegisterProvider("echo", ProviderRegistration{
		Models:      []string{"echo"},
		TextModel:   "echo",
		VisionModel: "echo",
		KeyOptional: true,
		Constructor: func(_, _, _ string, _ int, _ float64) Provider {
			return EchoProvider{}
		},
	})
}

// EchoProvider answers with the prompt it was given. It makes no network
// calls and is meant for local runs.
type EchoProvider struct{}

// Chat echoes the prompt, noting an attached image.
func (EchoProvider) Chat(ctx context.Context, req *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content := "Echo: " + req.Prompt
	if req.HasImage() {
		content += fmt.Sprintf(" [image %s, %d bytes]", req.Image.MIMEType, len(req.Image.Data))
	}
	return &Response{Content: content}, nil
}
