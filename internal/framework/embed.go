package framework

import (
	"context"
	"embed"
	"io/fs"

	"go.uber.org/zap"
)

//go:embed data/*.yaml
var builtin embed.FS

// LoadBuiltin loads the frameworks compiled into the binary.
func LoadBuiltin(ctx context.Context, log *zap.Logger) (*Store, error) {
	sub, err := fs.Sub(builtin, "data")
	if err != nil {
		return nil, err
	}
	return Load(ctx, sub, log)
}
