package wire

import (
	"encoding/binary"
	"fmt"
	"math"

	"Fireworks/internal/firework"

	"google.golang.org/protobuf/encoding/protowire"
)

// Burst is the render frame of one firework instance.
type Burst struct {
	ID    string
	Frame firework.Frame
}

// RenderFrame is what frame subscribers receive each update:
//
//	message RenderFrame {
//	  double now = 1;
//	  repeated Burst bursts = 2;
//	}
//	message Burst {
//	  string id = 1;
//	  repeated float positions = 2 [packed = true];
//	  repeated float colors = 3 [packed = true];
//	  repeated float scales = 4 [packed = true];
//	}
type RenderFrame struct {
	Now    float64
	Bursts []Burst
}

const (
	frameFieldNow   protowire.Number = 1
	frameFieldBurst protowire.Number = 2

	burstFieldID        protowire.Number = 1
	burstFieldPositions protowire.Number = 2
	burstFieldColors    protowire.Number = 3
	burstFieldScales    protowire.Number = 4
)

// EncodeFrame appends the wire form of f to b.
func EncodeFrame(b []byte, f RenderFrame) []byte {
	b = appendDouble(b, frameFieldNow, f.Now)
	var inner []byte
	for _, burst := range f.Bursts {
		inner = inner[:0]
		inner = appendString(inner, burstFieldID, burst.ID)
		inner = appendPacked(inner, burstFieldPositions, burst.Frame.Positions)
		inner = appendPacked(inner, burstFieldColors, burst.Frame.Colors)
		inner = appendPacked(inner, burstFieldScales, burst.Frame.Scales)
		b = protowire.AppendTag(b, frameFieldBurst, protowire.BytesType)
		b = protowire.AppendBytes(b, inner)
	}
	return b
}

// DecodeFrame parses a frame produced by EncodeFrame.
func DecodeFrame(data []byte) (RenderFrame, error) {
	var f RenderFrame
	err := walk(data, func(num protowire.Number, typ protowire.Type, data []byte) (int, error) {
		switch {
		case num == frameFieldNow && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(data)
			f.Now = math.Float64frombits(v)
			return n, nil
		case num == frameFieldBurst && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return n, nil
			}
			burst, err := decodeBurst(raw)
			if err != nil {
				return 0, err
			}
			f.Bursts = append(f.Bursts, burst)
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, data), nil
	})
	return f, err
}

func decodeBurst(data []byte) (Burst, error) {
	var b Burst
	err := walk(data, func(num protowire.Number, typ protowire.Type, data []byte) (int, error) {
		if typ != protowire.BytesType {
			return protowire.ConsumeFieldValue(num, typ, data), nil
		}
		raw, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return n, nil
		}
		switch num {
		case burstFieldID:
			b.ID = string(raw)
		case burstFieldPositions:
			b.Frame.Positions = unpackFloats(raw)
		case burstFieldColors:
			b.Frame.Colors = unpackFloats(raw)
		case burstFieldScales:
			b.Frame.Scales = unpackFloats(raw)
		}
		return n, nil
	})
	return b, err
}

func walk(data []byte, field func(protowire.Number, protowire.Type, []byte) (int, error)) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrBadEvent, protowire.ParseError(n))
		}
		data = data[n:]
		m, err := field(num, typ, data)
		if err != nil {
			return err
		}
		if m < 0 {
			return fmt.Errorf("%w: %v", ErrBadEvent, protowire.ParseError(m))
		}
		data = data[m:]
	}
	return nil
}

func appendPacked(b []byte, num protowire.Number, vals []float32) []byte {
	if len(vals) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	b = protowire.AppendVarint(b, uint64(4*len(vals)))
	for _, v := range vals {
		b = protowire.AppendFixed32(b, math.Float32bits(v))
	}
	return b
}

func unpackFloats(raw []byte) []float32 {
	out := make([]float32, len(raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return out
}
