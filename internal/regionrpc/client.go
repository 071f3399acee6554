package regionrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client calls RegionService over an existing connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// ParsePos returns the encoded region for text.
func (c *Client) ParsePos(ctx context.Context, text string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ParsePosMethod, wrapperspb.String(text), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Contains reports whether (lon, lat) in degrees lies in the region text
// describes.
func (c *Client) Contains(ctx context.Context, text string, lon, lat float64, opts ...grpc.CallOption) (bool, error) {
	req := &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldPos: structpb.NewStringValue(text),
		FieldLon: structpb.NewNumberValue(lon),
		FieldLat: structpb.NewNumberValue(lat),
	}}
	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, ContainsMethod, req, out, opts...); err != nil {
		return false, err
	}
	return out.GetValue(), nil
}
