package collagepb

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// codecName is negotiated via grpc.CallContentSubtype on every client
// call in this package; the server picks it up automatically from the
// incoming request's content-subtype, no server-side wiring required.
const codecName = "collagejson"

type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// CallContentSubtype is the codec name to pass via grpc.CallContentSubtype
// on every outgoing call made through this package's clients.
func CallContentSubtype() string { return codecName }
