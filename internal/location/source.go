package location

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// FixedSource emits pos every interval, starting immediately, until ctx ends.
func FixedSource(ctx context.Context, pos Position, interval time.Duration) <-chan Position {
	out := make(chan Position)
	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			p := pos
			p.At = time.Now().UTC()
			select {
			case out <- p:
			case <-ctx.Done():
				return
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// LineSource reads "lat,lon[,address]" lines. Blank lines and lines starting
// with # are ignored; malformed lines are logged and skipped.
func LineSource(ctx context.Context, r io.Reader, lg *slog.Logger) <-chan Position {
	out := make(chan Position)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(r)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			pos, err := ParsePosition(line)
			if err != nil {
				lg.Warn("skipping position line", "line", lineNo, "error", err)
				continue
			}
			pos.At = time.Now().UTC()
			select {
			case out <- pos:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			lg.Error("position source read failed", "error", err)
		}
	}()
	return out
}

var errPositionFormat = errors.New("expected lat,lon[,address]")

func ParsePosition(line string) (Position, error) {
	parts := strings.SplitN(line, ",", 3)
	if len(parts) < 2 {
		return Position{}, errPositionFormat
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Position{}, fmt.Errorf("latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Position{}, fmt.Errorf("longitude: %w", err)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Position{}, fmt.Errorf("coordinates out of range: %g, %g", lat, lon)
	}
	pos := Position{Latitude: lat, Longitude: lon}
	if len(parts) == 3 {
		pos.Address = strings.TrimSpace(parts[2])
	}
	return pos, nil
}
