package wire

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"google.golang.org/protobuf/encoding/protowire"
)

// Codec encodes launch events for one connection.
type Codec interface {
	Name() string
	Binary() bool
	Marshal(LaunchEvent) ([]byte, error)
	Unmarshal([]byte) (LaunchEvent, error)
}

var (
	JSON    Codec = jsonCodec{}
	Proto   Codec = protoCodec{}
	Msgpack Codec = msgpackCodec{}
)

// CodecByName resolves a codec name; empty selects JSON.
func CodecByName(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return JSON, nil
	case "proto", "protobuf":
		return Proto, nil
	case "msgpack":
		return Msgpack, nil
	}
	return nil, fmt.Errorf("unknown codec %q", name)
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }
func (jsonCodec) Binary() bool { return false }

func (jsonCodec) Marshal(e LaunchEvent) ([]byte, error) { return json.Marshal(e) }

func (jsonCodec) Unmarshal(data []byte) (LaunchEvent, error) {
	var e LaunchEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return LaunchEvent{}, fmt.Errorf("%w: %v", ErrBadEvent, err)
	}
	return e, nil
}

type msgpackCodec struct{}

func (msgpackCodec) Name() string { return "msgpack" }
func (msgpackCodec) Binary() bool { return true }

func (msgpackCodec) Marshal(e LaunchEvent) ([]byte, error) { return msgpack.Marshal(&e) }

func (msgpackCodec) Unmarshal(data []byte) (LaunchEvent, error) {
	var e LaunchEvent
	if err := msgpack.Unmarshal(data, &e); err != nil {
		return LaunchEvent{}, fmt.Errorf("%w: %v", ErrBadEvent, err)
	}
	return e, nil
}

// protoCodec lays out LaunchEvent in protobuf wire format:
//
//	message LaunchFirework {
//	  string type = 1;
//	  double x = 2;
//	  double y = 3;
//	  double z = 4;
//	  string color = 5;
//	  string firework_type = 6;
//	}
type protoCodec struct{}

const (
	launchFieldType protowire.Number = iota + 1
	launchFieldX
	launchFieldY
	launchFieldZ
	launchFieldColor
	launchFieldKind
)

func (protoCodec) Name() string { return "proto" }
func (protoCodec) Binary() bool { return true }

func (protoCodec) Marshal(e LaunchEvent) ([]byte, error) {
	b := make([]byte, 0, 64)
	b = appendString(b, launchFieldType, e.Type)
	b = appendDouble(b, launchFieldX, e.X)
	b = appendDouble(b, launchFieldY, e.Y)
	b = appendDouble(b, launchFieldZ, e.Z)
	b = appendString(b, launchFieldColor, e.Color)
	b = appendString(b, launchFieldKind, e.FireworkType)
	return b, nil
}

func (protoCodec) Unmarshal(data []byte) (LaunchEvent, error) {
	var e LaunchEvent
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return LaunchEvent{}, fmt.Errorf("%w: %v", ErrBadEvent, protowire.ParseError(n))
		}
		data = data[n:]
		switch {
		case typ == protowire.BytesType && (num == launchFieldType || num == launchFieldColor || num == launchFieldKind):
			s, m := protowire.ConsumeString(data)
			if m < 0 {
				return LaunchEvent{}, fmt.Errorf("%w: %v", ErrBadEvent, protowire.ParseError(m))
			}
			switch num {
			case launchFieldType:
				e.Type = s
			case launchFieldColor:
				e.Color = s
			default:
				e.FireworkType = s
			}
			n = m
		case typ == protowire.Fixed64Type && num >= launchFieldX && num <= launchFieldZ:
			v, m := protowire.ConsumeFixed64(data)
			if m < 0 {
				return LaunchEvent{}, fmt.Errorf("%w: %v", ErrBadEvent, protowire.ParseError(m))
			}
			f := math.Float64frombits(v)
			switch num {
			case launchFieldX:
				e.X = f
			case launchFieldY:
				e.Y = f
			default:
				e.Z = f
			}
			n = m
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return LaunchEvent{}, fmt.Errorf("%w: %v", ErrBadEvent, protowire.ParseError(n))
			}
		}
		data = data[n:]
	}
	return e, nil
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}
