// Package rotacion re-cifra periódicamente los secretos que quedaron bajo
// una versión de llave anterior a la vigente.
package rotacion

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/resguardoti/activos/internal/config"
	"github.com/resguardoti/activos/internal/repo"
	"github.com/resguardoti/activos/internal/secrets"
)

type credencialesRepository interface {
	ListCredencialesWeb(ctx context.Context) ([]repo.CredencialWeb, error)
	UpdateCredencialWebCifrado(ctx context.Context, id int64, p secrets.Payload) error
	ListWifiCredenciales(ctx context.Context) ([]repo.WifiCredencial, error)
	UpdateWifiCredencialCifrado(ctx context.Context, id int64, p secrets.Payload) error
}

// Service ejecuta la pasada de rotación según un cron configurable.
type Service struct {
	repo   credencialesRepository
	cipher *secrets.Cipher
	cfg    config.RotacionConfig
	logger zerolog.Logger
	cron   *cron.Cron
}

// NewService crea el servicio; Start decide si corre según cfg.Enabled.
func NewService(r credencialesRepository, cipher *secrets.Cipher, cfg config.RotacionConfig, logger zerolog.Logger) *Service {
	return &Service{repo: r, cipher: cipher, cfg: cfg, logger: logger}
}

// Start programa la pasada. No-op cuando la rotación está deshabilitada.
func (s *Service) Start() error {
	if !s.cfg.Enabled {
		return nil
	}

	loc := time.Local
	if s.cfg.Timezone != "" {
		parsed, err := time.LoadLocation(s.cfg.Timezone)
		if err != nil {
			return err
		}
		loc = parsed
	}

	s.cron = cron.New(cron.WithLocation(loc))
	if _, err := s.cron.AddFunc(s.cfg.Cron, func() {
		if _, err := s.RunOnce(context.Background()); err != nil {
			s.logger.Error().Err(err).Msg("rotación: pasada falló")
		}
	}); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().Str("cron", s.cfg.Cron).Msg("rotación: programada")
	return nil
}

// Stop detiene el cron y espera la pasada en curso.
func (s *Service) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// RunOnce recorre todos los secretos persistidos y re-cifra los que siguen
// bajo una versión vieja. Cada fila se procesa aislada: un fallo se anota
// y la pasada continúa; la fila queda intacta (una sola escritura por fila).
func (s *Service) RunOnce(ctx context.Context) (int, error) {
	rotated := 0

	webs, err := s.repo.ListCredencialesWeb(ctx)
	if err != nil {
		return 0, err
	}
	for _, row := range webs {
		payload := secrets.Payload{
			Ciphertext: row.PasswordEnc,
			IV:         row.PasswordIv,
			Tag:        row.PasswordTag,
			KeyVersion: row.PasswordKeyVersion,
		}
		next, changed, err := s.cipher.Rotate(payload)
		if err != nil {
			s.logger.Warn().Err(err).Int64("credencial_web_id", row.ID).Msg("rotación: fila omitida")
			continue
		}
		if !changed {
			continue
		}
		if err := s.repo.UpdateCredencialWebCifrado(ctx, row.ID, next); err != nil {
			s.logger.Warn().Err(err).Int64("credencial_web_id", row.ID).Msg("rotación: no se pudo persistir")
			continue
		}
		rotated++
	}

	wifis, err := s.repo.ListWifiCredenciales(ctx)
	if err != nil {
		return rotated, err
	}
	for _, row := range wifis {
		payload := secrets.Payload{
			Ciphertext: row.PasswordEnc,
			IV:         row.PasswordIv,
			Tag:        row.PasswordTag,
			KeyVersion: row.PasswordKeyVersion,
		}
		next, changed, err := s.cipher.Rotate(payload)
		if err != nil {
			s.logger.Warn().Err(err).Int64("wifi_credencial_id", row.ID).Msg("rotación: fila omitida")
			continue
		}
		if !changed {
			continue
		}
		if err := s.repo.UpdateWifiCredencialCifrado(ctx, row.ID, next); err != nil {
			s.logger.Warn().Err(err).Int64("wifi_credencial_id", row.ID).Msg("rotación: no se pudo persistir")
			continue
		}
		rotated++
	}

	s.logger.Info().Int("rotated", rotated).Msg("rotación: pasada completada")
	return rotated, nil
}
