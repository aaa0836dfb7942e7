package debug

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/devops"

	"github.com/dyike/finreact/config"
	"github.com/dyike/finreact/internal/logger"
)

// EinoDebugger starts the eino devops server so compiled graphs can be
// inspected from the Eino Dev plugin.
type EinoDebugger struct {
	config *config.Config
	log    *logger.Logger
}

func NewEinoDebugger(cfg *config.Config, log *logger.Logger) *EinoDebugger {
	if log == nil {
		log = logger.Nop()
	}
	return &EinoDebugger{
		config: cfg,
		log:    log.Component("eino-debug"),
	}
}

// Initialize must run before any graph is compiled. No-op when disabled.
func (d *EinoDebugger) Initialize(ctx context.Context) error {
	if !d.IsEnabled() {
		return nil
	}

	d.log.Infow("initializing eino visual debug plugin", "port", d.config.Debug.EinoDebugPort)
	if err := devops.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize Eino debug plugin: %w", err)
	}
	d.log.Infow("eino debug server ready", "url", d.GetDebugURL())
	return nil
}

func (d *EinoDebugger) IsEnabled() bool {
	return d.config.Debug.EinoDebugEnabled
}

func (d *EinoDebugger) GetDebugURL() string {
	if !d.IsEnabled() {
		return ""
	}
	return fmt.Sprintf("http://localhost:%d", d.config.Debug.EinoDebugPort)
}
