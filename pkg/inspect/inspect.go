// Package inspect reads the raw points behind the memory service straight
// out of its Qdrant collection. It is a debugging aid: it shows what the
// service actually stored, bypassing the service's own API.
package inspect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"

	"github.com/qdrant/go-client/qdrant"

	"github.com/papercomputeco/memdeck/pkg/logger"
	"github.com/papercomputeco/memdeck/pkg/memory"
)

const (
	defaultHost       = "localhost"
	defaultPort       = 6334
	defaultCollection = "mem0"
	defaultLimit      = 10
)

// payloadMemoryKeys are the payload fields holding the memory text, in the
// order they are tried. mem0 stores it under "data".
var payloadMemoryKeys = []string{"data", "memory", "text"}

// reservedPayloadKeys are mapped to Record fields rather than metadata.
var reservedPayloadKeys = map[string]struct{}{
	"data":       {},
	"memory":     {},
	"text":       {},
	"user_id":    {},
	"created_at": {},
	"updated_at": {},
	"hash":       {},
}

// Config configures an Inspector.
type Config struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
	Logger     *slog.Logger
}

// scroller is the subset of *qdrant.Client the inspector uses.
type scroller interface {
	Scroll(ctx context.Context, request *qdrant.ScrollPoints) ([]*qdrant.RetrievedPoint, error)
	Close() error
}

// Point is one stored point with its decoded payload.
type Point struct {
	ID      string         `json:"id"`
	Payload map[string]any `json:"payload"`
	Record  memory.Record  `json:"record"`
}

// Inspector scrolls a Qdrant collection.
type Inspector struct {
	client     scroller
	collection string
	logger     *slog.Logger
}

// New connects to Qdrant over gRPC.
func New(c Config) (*Inspector, error) {
	host := c.Host
	if host == "" {
		host = defaultHost
	}
	port := c.Port
	if port == 0 {
		port = defaultPort
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: c.APIKey,
		UseTLS: c.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant at %s:%d: %w", host, port, err)
	}

	return newInspector(client, c.Collection, c.Logger), nil
}

func newInspector(client scroller, collection string, log *slog.Logger) *Inspector {
	if collection == "" {
		collection = defaultCollection
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Inspector{client: client, collection: collection, logger: log}
}

// Collection returns the inspected collection name.
func (i *Inspector) Collection() string {
	return i.collection
}

// Points returns up to limit points with payloads and without vectors.
func (i *Inspector) Points(ctx context.Context, limit int) ([]Point, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	retrieved, err := i.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: i.collection,
		Limit:          qdrant.PtrOf(uint32(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("scrolling collection %s: %w", i.collection, err)
	}

	i.logger.Debug("scrolled qdrant collection", "collection", i.collection, "points", len(retrieved))

	points := make([]Point, 0, len(retrieved))
	for _, rp := range retrieved {
		id := PointID(rp.GetId())
		payload := DecodePayload(rp.GetPayload())
		points = append(points, Point{
			ID:      id,
			Payload: payload,
			Record:  RecordFromPayload(id, payload),
		})
	}

	return points, nil
}

// Close releases the gRPC connection.
func (i *Inspector) Close() error {
	return i.client.Close()
}

// PointID renders a point ID as a string, whether it is a UUID or a number.
func PointID(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if uuid := id.GetUuid(); uuid != "" {
		return uuid
	}
	return strconv.FormatUint(id.GetNum(), 10)
}

// DecodePayload converts a Qdrant payload into plain Go values.
func DecodePayload(payload map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(payload))
	for key, value := range payload {
		out[key] = decodeValue(value)
	}
	return out
}

func decodeValue(value *qdrant.Value) any {
	if value == nil {
		return nil
	}

	switch kind := value.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_ListValue:
		values := kind.ListValue.GetValues()
		list := make([]any, 0, len(values))
		for _, item := range values {
			list = append(list, decodeValue(item))
		}
		return list
	case *qdrant.Value_StructValue:
		return DecodePayload(kind.StructValue.GetFields())
	default:
		return nil
	}
}

// RecordFromPayload maps a mem0 payload back to the Record the service would
// return for it. Keys that are not Record fields become metadata.
func RecordFromPayload(id string, payload map[string]any) memory.Record {
	record := memory.Record{
		ID:        id,
		UserID:    stringField(payload, "user_id"),
		CreatedAt: stringField(payload, "created_at"),
		UpdatedAt: stringField(payload, "updated_at"),
		Hash:      stringField(payload, "hash"),
	}

	for _, key := range payloadMemoryKeys {
		if text := stringField(payload, key); text != "" {
			record.Memory = text
			break
		}
	}

	for _, key := range slices.Sorted(maps.Keys(payload)) {
		if _, reserved := reservedPayloadKeys[key]; reserved {
			continue
		}
		if record.Metadata == nil {
			record.Metadata = make(map[string]any)
		}
		record.Metadata[key] = payload[key]
	}

	return record
}

func stringField(payload map[string]any, key string) string {
	if s, ok := payload[key].(string); ok {
		return s
	}
	return ""
}

// ErrNoPoints is returned by First when the collection is empty.
var ErrNoPoints = errors.New("collection has no points")

// First returns the first point of the collection.
func (i *Inspector) First(ctx context.Context) (Point, error) {
	points, err := i.Points(ctx, 1)
	if err != nil {
		return Point{}, err
	}
	if len(points) == 0 {
		return Point{}, ErrNoPoints
	}
	return points[0], nil
}
