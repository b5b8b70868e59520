// internal/escrow/options.go
package escrow

import (
	"github.com/rovshanmuradov/hybrid-swap/internal/events"
)

type options struct {
	finder     PDAFinder
	publisher  events.Publisher
	classifier ErrorClassifier
}

// Option настраивает компоненты эскроу.
type Option func(*options)

// WithPDAFinder подменяет поиск program-derived address.
func WithPDAFinder(f PDAFinder) Option {
	return func(o *options) { o.finder = f }
}

// WithPublisher включает публикацию событий жизненного цикла и обменов.
func WithPublisher(p events.Publisher) Option {
	return func(o *options) { o.publisher = p }
}

// WithErrorClassifier задаёт распознавание "account already in use".
func WithErrorClassifier(c ErrorClassifier) Option {
	return func(o *options) { o.classifier = c }
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.finder == nil {
		o.finder = DefaultPDAFinder
	}
	return o
}
