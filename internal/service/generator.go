package service

import (
	"context"
	"fmt"
	"log/slog"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/dmarkhas/tinylink/internal/database"
)

// generateShortCode draws random codes and checks them against the store
// until one looks free. The code length for attempt n is
// minLength + n/3: every three failed attempts widen the code space by one
// character, cutting collision probability as contention is detected.
//
// The existence check is best-effort. A code reported free is returned
// without re-validation, and a store error on the final attempt returns the
// unverified code rather than failing the whole operation; true uniqueness is
// enforced by the store's constraint at write time.
func generateShortCode(ctx context.Context, store database.Store, logger *slog.Logger, minLength, maxAttempts int) (string, error) {
	const op = "service.generateShortCode"

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		length := minLength + attempt/3

		shortCode, err := gonanoid.New(length)
		if err != nil {
			return "", fmt.Errorf("%s: failed to generate short code: %w", op, err)
		}

		exists, err := store.ShortCodeExists(ctx, shortCode)
		if err != nil {
			if attempt == maxAttempts {
				logger.Warn("store unavailable, returning unverified short code",
					slog.String("short_code", shortCode),
					slog.Int("attempt", attempt),
				)
				return shortCode, nil
			}

			logger.Error("short code existence check failed",
				slog.Int("attempt", attempt),
				slog.Any("err", err),
			)
			continue
		}

		if !exists {
			return shortCode, nil
		}

		logger.Debug("short code collision, retrying",
			slog.String("short_code", shortCode),
			slog.Int("attempt", attempt),
		)
	}

	return "", fmt.Errorf("%s: %w", op, ErrGenerationExhausted)
}
