package sugar

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/samber/mo"

	"github.com/go-ctap/fingerprint/pkg/options"
	"github.com/go-ctap/fingerprint/pkg/sensor"
	"github.com/go-ctap/fingerprint/pkg/session"
	"github.com/go-ctap/fingerprint/pkg/vault"
	"github.com/go-ctap/fingerprint/pkg/workflow"
)

var ErrNoSensor = errors.New("sugar: no sensor found")

// CheckSensor opens the sensor, reads its library and closes it again.
func CheckSensor(ctx context.Context, opener sensor.Opener, opts ...options.Option) (*workflow.Info, error) {
	var info *workflow.Info
	err := session.With(ctx, opener, func(s *session.Session) error {
		var err error
		info, err = s.Info(ctx)
		return err
	}, opts...)
	if err != nil {
		return nil, err
	}

	return info, nil
}

// ResetSensor empties the sensor library and returns the resulting state.
func ResetSensor(ctx context.Context, opener sensor.Opener, opts ...options.Option) (*workflow.Info, error) {
	var info *workflow.Info
	err := session.With(ctx, opener, func(s *session.Session) error {
		if err := s.Clear(ctx); err != nil {
			return err
		}

		var err error
		info, err = s.Info(ctx)
		return err
	}, opts...)
	if err != nil {
		return nil, err
	}

	return info, nil
}

// EnrollToVault enrolls a finger and seals the template for id. The sensor is
// only touched once id has been validated. It returns the sealed file's path.
func EnrollToVault(
	ctx context.Context,
	opener sensor.Opener,
	v *vault.Vault,
	id string,
	passphrase []byte,
	opts ...options.Option,
) (string, error) {
	if _, err := v.Path(id); err != nil {
		return "", err
	}
	if len(passphrase) == 0 {
		return "", vault.ErrNoPassphrase
	}

	var template []byte
	err := session.With(ctx, opener, func(s *session.Session) error {
		var err error
		template, err = s.Enroll(ctx)
		return err
	}, opts...)
	if err != nil {
		return "", err
	}

	path, err := v.Put(id, template, passphrase)
	clear(template)
	if err != nil {
		return "", err
	}
	options.NewOptions(opts...).Logger.Info("encrypted fingerprint saved", "id", id, "path", path)

	return path, nil
}

// AuthenticateWithVault decrypts the template of id, stages it in the sensor
// for one live match and discards it afterwards. A finger that matches no
// resident template yields workflow.ErrNotFound.
func AuthenticateWithVault(
	ctx context.Context,
	opener sensor.Opener,
	v *vault.Vault,
	id string,
	passphrase []byte,
	opts ...options.Option,
) (*workflow.Match, error) {
	path, err := v.Path(id)
	if err != nil {
		return nil, err
	}

	return AuthenticateWithFile(ctx, opener, v, path, passphrase, opts...)
}

// AuthenticateWithFile is AuthenticateWithVault for an explicit sealed file.
func AuthenticateWithFile(
	ctx context.Context,
	opener sensor.Opener,
	v *vault.Vault,
	path string,
	passphrase []byte,
	opts ...options.Option,
) (*workflow.Match, error) {
	template, err := v.OpenPath(path, passphrase)
	if err != nil {
		return nil, err
	}
	defer clear(template)

	var match *workflow.Match
	err = session.With(ctx, opener, func(s *session.Session) error {
		var err error
		match, err = s.AuthenticateTemplate(ctx, template)
		return err
	}, opts...)
	if err != nil {
		return nil, err
	}

	return match, nil
}

type probe struct {
	index int
	port  string
	drv   sensor.Driver
}

// Detect tries every port concurrently and keeps the first port, in the given
// order, that answers as a sensor. The other drivers are closed.
func Detect(ports []string, open func(port string) (sensor.Driver, error)) (string, sensor.Driver, error) {
	if len(ports) == 0 {
		return "", nil, ErrNoSensor
	}

	// Every probe reports either an open driver or the reason it failed.
	results := make(chan mo.Either[probe, error], len(ports))

	var wg sync.WaitGroup
	for i, port := range ports {
		wg.Add(1)
		go func() {
			defer wg.Done()

			drv, err := open(port)
			if err != nil {
				results <- mo.Right[probe, error](fmt.Errorf("%s: %w", port, err))
				return
			}
			results <- mo.Left[probe, error](probe{index: i, port: port, drv: drv})
		}()
	}
	wg.Wait()
	close(results)

	var (
		found *probe
		extra []sensor.Driver
		errs  []error
	)
	for res := range results {
		if err, ok := res.Right(); ok {
			errs = append(errs, err)
			continue
		}

		p := res.MustLeft()
		switch {
		case found == nil:
			found = &p
		case p.index < found.index:
			extra = append(extra, found.drv)
			found = &p
		default:
			extra = append(extra, p.drv)
		}
	}

	for _, drv := range extra {
		_ = drv.Close()
	}

	if found == nil {
		return "", nil, errors.Join(append([]error{ErrNoSensor}, errs...)...)
	}

	return found.port, found.drv, nil
}
