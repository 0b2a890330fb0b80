package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/ariefcatur/go-bike-configurator/internal/queue"
)

// Service hosts the asynq server.
type Service struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

func NewService(redisAddr string, concurrency int, consumer *Consumer, log zerolog.Logger) (*Service, error) {
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, cfg := queue.BuildServerConfig(redisAddr, concurrency)
	cfg.Logger = asynqLogger{log: log.With().Str("component", "asynq").Logger()}
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{server: asynq.NewServer(opt, cfg), mux: mux}, nil
}

// Run processes tasks until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	if err := s.server.Start(s.mux); err != nil {
		return err
	}
	<-ctx.Done()
	s.server.Shutdown()
	return nil
}

// asynqLogger routes asynq's own logging through zerolog.
type asynqLogger struct{ log zerolog.Logger }

func (l asynqLogger) Debug(args ...any) { l.log.Debug().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...any)  { l.log.Info().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...any)  { l.log.Warn().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...any) { l.log.Error().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...any) { l.log.Fatal().Msg(fmt.Sprint(args...)) }
