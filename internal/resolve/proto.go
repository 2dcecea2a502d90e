package resolve

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// messageField reads a field from a protobuf message by proto name, then by
// JSON name. Unset message fields resolve to nil.
func messageField(m proto.Message, name string) (any, bool) {
	msg := m.ProtoReflect()
	fields := msg.Descriptor().Fields()
	fd := fields.ByName(protoreflect.Name(name))
	if fd == nil {
		fd = fields.ByJSONName(name)
	}
	if fd == nil {
		return nil, false
	}
	if fd.Message() != nil && !fd.IsList() && !fd.IsMap() && !msg.Has(fd) {
		return nil, true
	}
	return fromReflectValue(fd, msg.Get(fd)), true
}

func fromReflectValue(fd protoreflect.FieldDescriptor, v protoreflect.Value) any {
	switch {
	case fd.IsList():
		list := v.List()
		out := make([]any, list.Len())
		for i := 0; i < list.Len(); i++ {
			out[i] = fromScalar(fd, list.Get(i))
		}
		return out
	case fd.IsMap():
		out := make(map[string]any, v.Map().Len())
		v.Map().Range(func(k protoreflect.MapKey, mv protoreflect.Value) bool {
			out[k.String()] = fromScalar(fd.MapValue(), mv)
			return true
		})
		return out
	default:
		return fromScalar(fd, v)
	}
}

func fromScalar(fd protoreflect.FieldDescriptor, v protoreflect.Value) any {
	switch fd.Kind() {
	case protoreflect.EnumKind:
		if ev := fd.Enum().Values().ByNumber(v.Enum()); ev != nil {
			return string(ev.Name())
		}
		return int64(v.Enum())
	case protoreflect.MessageKind, protoreflect.GroupKind:
		switch m := v.Message().Interface().(type) {
		case *timestamppb.Timestamp:
			return m.AsTime()
		case *structpb.Struct:
			return m
		case *structpb.Value:
			return fromStructValue(m)
		case *structpb.ListValue:
			return listItems(m)
		default:
			return m
		}
	default:
		return v.Interface()
	}
}

// fromStructValue unwraps a structpb.Value. Nested structs stay as
// *structpb.Struct so resolution keeps its keyed semantics.
func fromStructValue(v *structpb.Value) any {
	switch k := v.GetKind().(type) {
	case *structpb.Value_StructValue:
		return k.StructValue
	case *structpb.Value_ListValue:
		return listItems(k.ListValue)
	default:
		return v.AsInterface()
	}
}

func listItems(l *structpb.ListValue) []any {
	values := l.GetValues()
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = fromStructValue(v)
	}
	return out
}
