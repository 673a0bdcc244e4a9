package r503

import (
	"encoding/binary"
	"log/slog"
	"time"
)

const (
	DefaultBaudRate    = 57600
	DefaultReadTimeout = 5 * time.Second
)

type Options struct {
	Logger      *slog.Logger
	Address     Address
	Password    uint32
	BaudRate    int
	ReadTimeout time.Duration
	Transfer    TransferKind
}

type Option func(*Options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

func WithAddress(addr uint32) Option {
	return func(o *Options) {
		binary.BigEndian.PutUint32(o.Address[:], addr)
	}
}

func WithPassword(password uint32) Option {
	return func(o *Options) {
		o.Password = password
	}
}

func WithBaudRate(baud int) Option {
	return func(o *Options) {
		o.BaudRate = baud
	}
}

// WithReadTimeout bounds the wait for a single acknowledge packet.
func WithReadTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.ReadTimeout = timeout
	}
}

func WithTransferKind(kind TransferKind) Option {
	return func(o *Options) {
		o.Transfer = kind
	}
}

func NewOptions(opts ...Option) *Options {
	oo := &Options{
		Logger:      slog.Default(),
		Address:     BroadcastAddress,
		Password:    defaultPassword,
		BaudRate:    DefaultBaudRate,
		ReadTimeout: DefaultReadTimeout,
		Transfer:    TransferCharacter,
	}

	for _, opt := range opts {
		opt(oo)
	}
	if oo.Logger == nil {
		oo.Logger = slog.Default()
	}

	return oo
}
