// pkg/interaction/reader.go

package interaction

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// ReadLine writes label to out and returns one trimmed line from reader.
// A final line without a newline is still returned; io.EOF only comes back
// when nothing was typed.
func ReadLine(ctx context.Context, reader *bufio.Reader, out io.Writer, label string) (string, error) {
	logger := otelzap.Ctx(ctx)
	logger.Debug("Prompting for input", zap.String("label", label))

	_, _ = fmt.Fprint(out, label+": ")

	text, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && text != "") {
		if !errors.Is(err, io.EOF) {
			logger.Error("Failed to read input", zap.Error(err))
		}
		return "", err
	}

	value := strings.TrimSpace(text)
	logger.Debug("Input received", zap.String("label", label), zap.String("value", value))
	return value, nil
}
