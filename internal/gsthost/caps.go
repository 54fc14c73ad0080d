package gsthost

import (
	"errors"
	"fmt"
)

var (
	errCapsField         = errors.New("caps field missing or not an integer")
	errUnsupportedFormat = errors.New("caps format is not NV12")
	errInterlaced        = errors.New("caps are not progressive")
)

// geometryFromCaps checks that the caps describe progressive NV12 and reads
// width and height through get, which has the shape of
// (*gst.Structure).GetValue. Caps without interlace-mode are progressive.
func geometryFromCaps(get func(string) (interface{}, error)) (width, height int, err error) {
	format, ferr := get("format")
	if s, ok := format.(string); ferr != nil || !ok || s != "NV12" {
		return 0, 0, fmt.Errorf("format %v: %w", format, errUnsupportedFormat)
	}
	if mode, merr := get("interlace-mode"); merr == nil {
		if s, ok := mode.(string); !ok || s != "progressive" {
			return 0, 0, fmt.Errorf("interlace-mode %v: %w", mode, errInterlaced)
		}
	}

	if width, err = capsInt(get, "width"); err != nil {
		return 0, 0, err
	}
	if height, err = capsInt(get, "height"); err != nil {
		return 0, 0, err
	}
	return width, height, nil
}

func capsInt(get func(string) (interface{}, error), field string) (int, error) {
	v, err := get(field)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, errCapsField)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case uint:
		return int(n), nil
	case uint32:
		return int(n), nil
	}
	return 0, fmt.Errorf("%s is %T: %w", field, v, errCapsField)
}
