package writer

import "github.com/ProjectTradeAI/agentrader/internal/types"

// BarWriter persists downloaded bars. Initialize must be called before the
// first Write; Finalize flushes everything and returns the output path.
type BarWriter interface {
	Initialize() error
	Write(bar types.Bar) error
	Finalize() (outputPath string, err error)
	Close() error
}
