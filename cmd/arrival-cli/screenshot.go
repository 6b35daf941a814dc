package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/arrival-space/arrival-tools/internal/relay"
	"github.com/arrival-space/arrival-tools/internal/term"
)

// runScreenshot asks the page for a screenshot data URL, decodes it,
// optionally resizes, and saves it to a timestamped PNG.
func runScreenshot(ctx context.Context, srv *relay.Server, args []string) error {
	w, h, err := parseDimensions(args)
	if err != nil {
		return err
	}

	raw, err := srv.Execute(ctx, "ArrivalSpace.screenshot()")
	if err != nil {
		return err
	}

	var dataURL string
	if err := json.Unmarshal(raw, &dataURL); err != nil {
		return fmt.Errorf("unexpected screenshot result: %s", raw)
	}

	img, err := decodeDataURL(dataURL)
	if err != nil {
		return err
	}

	pic, err := imaging.Decode(bytes.NewReader(img))
	if err != nil {
		return fmt.Errorf("decode screenshot: %w", err)
	}
	if w > 0 && h > 0 {
		pic = imaging.Resize(pic, w, h, imaging.Lanczos)
	}

	name := fmt.Sprintf("screenshot-%s.png", time.Now().Format("20060102-150405"))
	if err := imaging.Save(pic, name); err != nil {
		return fmt.Errorf("save screenshot: %w", err)
	}

	term.Success("saved %s", name)
	term.Blank()
	return nil
}

// decodeDataURL strips a data:...;base64, prefix and decodes the payload.
func decodeDataURL(dataURL string) ([]byte, error) {
	_, payload, found := strings.Cut(dataURL, ";base64,")
	if !found {
		return nil, fmt.Errorf("screenshot result is not a base64 data url")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode screenshot data: %w", err)
	}
	return data, nil
}
