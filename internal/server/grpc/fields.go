package grpc

import (
	"fmt"
	"math"

	"github.com/dmitrijs2005/classmint/internal/common"
	"google.golang.org/protobuf/types/known/structpb"
)

// Missing fields read as their zero value; present fields of the wrong
// kind are invalid input.

func fieldError(key, want string) error {
	return fmt.Errorf("%w: %s must be %s", common.ErrInvalidInput, key, want)
}

func intField(in *structpb.Struct, key string) (int64, error) {
	v, ok := in.GetFields()[key]
	if !ok {
		return 0, nil
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fieldError(key, "a number")
	}
	f := n.NumberValue
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.Abs(f) > 1<<53 {
		return 0, fieldError(key, "an integer")
	}
	return int64(f), nil
}

func stringField(in *structpb.Struct, key string) (string, error) {
	v, ok := in.GetFields()[key]
	if !ok {
		return "", nil
	}
	sv, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fieldError(key, "a string")
	}
	return sv.StringValue, nil
}

func boolField(in *structpb.Struct, key string) (bool, error) {
	v, ok := in.GetFields()[key]
	if !ok {
		return false, nil
	}
	bv, ok := v.GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return false, fieldError(key, "a boolean")
	}
	return bv.BoolValue, nil
}

func structField(in *structpb.Struct, key string) (*structpb.Struct, error) {
	v, ok := in.GetFields()[key]
	if !ok {
		return nil, nil
	}
	sv, ok := v.GetKind().(*structpb.Value_StructValue)
	if !ok {
		return nil, fieldError(key, "an object")
	}
	return sv.StructValue, nil
}

func response(fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return out, nil
}
