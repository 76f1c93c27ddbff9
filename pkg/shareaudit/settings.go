package shareaudit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// builtinSettingSpecs declares the operational keys the core owns. The
// registry replaces ad hoc string coercion: every key carries its type,
// default and validator, and all reads and writes go through it.
func builtinSettingSpecs() map[string]SettingSpec {
	specs := []SettingSpec{
		{Key: SettingMaintenanceMode, Kind: SettingKindBool, Default: "false"},
		{Key: SettingConfigProtection, Kind: SettingKindBool, Default: "false"},
		{Key: SettingDiskCapacityGB, Kind: SettingKindFloat, Default: "0", Validate: nonNegativeFloat},
	}

	m := make(map[string]SettingSpec, len(specs))
	for _, spec := range specs {
		m[spec.Key] = spec
	}
	return m
}

func nonNegativeFloat(value string) error {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return err
	}
	if v < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

// Setting returns the stored value for a registered key, or the
// registered default when no value has been written yet.
func (s *service) Setting(ctx context.Context, key string) (string, error) {
	spec, ok := s.settings[key]
	if !ok {
		return "", &SettingError{Key: key, Op: "get", Err: ErrUnknownSetting}
	}

	value, err := s.repository.GetSetting(ctx, key)
	if errors.Is(err, ErrSettingNotFound) {
		return spec.Default, nil
	}
	if err != nil {
		return "", &SettingError{Key: key, Op: "get", Err: err}
	}
	return value, nil
}

// BoolSetting returns a registered bool key as a bool.
func (s *service) BoolSetting(ctx context.Context, key string) (bool, error) {
	value, err := s.Setting(ctx, key)
	if err != nil {
		return false, err
	}
	v, err := strconv.ParseBool(value)
	if err != nil {
		return false, &SettingError{Key: key, Op: "get", Err: err}
	}
	return v, nil
}

// FloatSetting returns a registered numeric key as a float64.
func (s *service) FloatSetting(ctx context.Context, key string) (float64, error) {
	value, err := s.Setting(ctx, key)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, &SettingError{Key: key, Op: "get", Err: err}
	}
	return v, nil
}

// UpdateSetting validates and stores a value for a registered key. The
// value is normalized to a canonical form for its kind before writing.
func (s *service) UpdateSetting(ctx context.Context, key, value string) error {
	spec, ok := s.settings[key]
	if !ok {
		return &SettingError{Key: key, Op: "set", Err: ErrUnknownSetting}
	}

	normalized, err := normalizeSettingValue(spec.Kind, value)
	if err != nil {
		return &SettingError{Key: key, Op: "set", Err: fmt.Errorf("%w: %v", ErrInvalidSettingValue, err)}
	}
	if spec.Validate != nil {
		if err := spec.Validate(normalized); err != nil {
			return &SettingError{Key: key, Op: "set", Err: fmt.Errorf("%w: %v", ErrInvalidSettingValue, err)}
		}
	}

	if err := s.repository.SetSetting(ctx, key, normalized); err != nil {
		return &SettingError{Key: key, Op: "set", Err: err}
	}
	return nil
}

func normalizeSettingValue(kind SettingKind, value string) (string, error) {
	switch kind {
	case SettingKindBool:
		v, err := strconv.ParseBool(value)
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(v), nil
	case SettingKindInt:
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(v, 10), nil
	case SettingKindFloat:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return value, nil
	}
}
