package out

import (
	"context"
	"fmt"
	"io"

	"ghnb/internal/modules/auth/domain"
	authout "ghnb/internal/modules/auth/port/out"
)

type WriterPrompter struct {
	w io.Writer
}

func NewWriterPrompter(w io.Writer) authout.Prompter {
	return &WriterPrompter{w: w}
}

func (p *WriterPrompter) PromptDeviceCode(_ context.Context, code domain.DeviceCode) {
	_, _ = fmt.Fprintf(p.w, "! First copy your one-time code: %s\n", code.UserCode)
	_, _ = fmt.Fprintf(p.w, "Then open %s in your browser to authorize ghnb.\n", code.VerificationURI)
}

// FuncPrompter adapts a callback, used by the terminal UI to surface the code.
type FuncPrompter func(ctx context.Context, code domain.DeviceCode)

func (f FuncPrompter) PromptDeviceCode(ctx context.Context, code domain.DeviceCode) {
	f(ctx, code)
}
