// journal/journal.go
package journal

import "github.com/rustyeddy/brokersim/broker"

// Journal persists execution reports emitted by a gateway. Implementations
// are plain consumers: they never call back into the gateway.
type Journal interface {
	RecordExec(broker.ExecReport) error
	Close() error
}
