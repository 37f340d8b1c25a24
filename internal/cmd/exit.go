package cmd

import (
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	gferrors "github.com/fulmenhq/gofulmen/errors"

	"github.com/edgarlens/edgarlens/internal/core/engine"
	"github.com/edgarlens/edgarlens/internal/observability"
)

// ExitCodeFor maps a command error to a semantic foundry exit code.
// Upstream outages exit as ExitExternalServiceUnavailable so scripts can
// retry later; everything else is a plain failure.
func ExitCodeFor(err error) foundry.ExitCode {
	var status *engine.StatusError
	var netErr net.Error
	switch {
	case err == nil:
		return foundry.ExitCode(0)
	case errors.Is(err, os.ErrNotExist):
		return foundry.ExitFileNotFound
	case errors.Is(err, engine.ErrRetriesExhausted):
		return foundry.ExitExternalServiceUnavailable
	case errors.As(err, &status) && status.StatusCode >= 500:
		return foundry.ExitExternalServiceUnavailable
	case errors.As(err, &netErr):
		return foundry.ExitExternalServiceUnavailable
	default:
		return foundry.ExitFailure
	}
}

// ExitWithError terminates after a failed command using ExitCodeFor.
func ExitWithError(err error) {
	ExitWithCode(observability.CLILogger, ExitCodeFor(err), "Command failed", err)
}

// ExitWithCode exits the program with a semantic foundry exit code and logs the error.
//
// Parameters:
//   - logger: The logger to use for error output (can be nil for early failures)
//   - exitCode: The foundry exit code constant (e.g., foundry.ExitConfigInvalid)
//   - msg: Human-readable error message
//   - err: The underlying error (can be nil)
func ExitWithCode(logger *logging.Logger, exitCode foundry.ExitCode, msg string, err error) {
	info, ok := foundry.GetExitCodeInfo(exitCode)
	if !ok {
		fmt.Fprintf(os.Stderr, "FATAL: %s: %v (exit code: %d)\n", msg, err, exitCode)
		os.Exit(int(exitCode))
	}

	var envelope *gferrors.ErrorEnvelope
	isEnvelope := errors.As(err, &envelope)

	if logger == nil {
		writeExitStderr(msg, err, envelope)
		fmt.Fprintf(os.Stderr, "Exit Code: %d (%s) - %s\n", info.Code, info.Name, info.Description)
		os.Exit(info.Code)
	}

	fields := []zap.Field{
		zap.Int("exit_code", info.Code),
		zap.String("exit_name", info.Name),
		zap.String("exit_category", info.Category),
	}
	if isEnvelope {
		fields = append(fields,
			zap.String("error_code", envelope.Code),
			zap.String("correlation_id", envelope.CorrelationID),
		)
		if envelope.Context != nil {
			fields = append(fields, zap.Any("error_context", envelope.Context))
		}
		if original, ok := envelope.Original.(error); ok {
			err = original
		}
	}
	fields = append(fields, zap.Error(err))
	logger.Error(msg, fields...)

	os.Exit(info.Code)
}

// ExitWithCodeStderr is a variant that writes to stderr without a logger.
// Use this for early failures before logger initialization.
func ExitWithCodeStderr(exitCode foundry.ExitCode, msg string, err error) {
	ExitWithCode(nil, exitCode, msg, err)
}

func writeExitStderr(msg string, err error, envelope *gferrors.ErrorEnvelope) {
	switch {
	case envelope != nil:
		fmt.Fprintf(os.Stderr, "FATAL: %s [%s]: %s (correlation: %s)\n",
			msg, envelope.Code, envelope.Message, envelope.CorrelationID)
		if original, ok := envelope.Original.(error); ok {
			fmt.Fprintf(os.Stderr, "Underlying error: %v\n", original)
		}
	case err != nil:
		fmt.Fprintf(os.Stderr, "FATAL: %s: %v\n", msg, err)
	default:
		fmt.Fprintf(os.Stderr, "FATAL: %s\n", msg)
	}
}
