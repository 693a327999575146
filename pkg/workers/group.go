package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

type Service interface {
	Name() string
	Run(context.Context) error
}

// Group runs services until the context is canceled or any of them fails;
// a failure cancels the rest. Start and stop of each worker is logged here
// so individual services only implement Run.
type Group []Service

func (g Group) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancelFn := context.WithCancel(ctx)
	defer cancelFn()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	wg.Add(len(g))
	for _, s := range g {
		go func(s Service) {
			defer wg.Done()

			slog.Info("starting worker", "name", s.Name())
			err := s.Run(runCtx)
			slog.Info("worker stopped", "name", s.Name())

			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
				mu.Unlock()
				cancelFn()
			}
		}(s)
	}

	wg.Wait()
	return errors.Join(errs...)
}
