//go:build ignore

// Command segmentschema emits the JSON schema for the segment
// verification wire format. Client teams pin their serializers against
// the generated document instead of reading Go structs.
//
// Usage: go run tools/segmentschema/main.go -out docs/segment.schema.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"reflect"

	"github.com/invopop/jsonschema"

	"towerkeep/server/internal/session"
)

func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "", "output path for the JSON schema")
	flag.Parse()

	if outPath == "" {
		log.Fatal("segmentschema: missing -out path")
	}

	schema, err := buildSchema()
	if err != nil {
		log.Fatalf("segmentschema: %v", err)
	}

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		log.Fatalf("segmentschema: marshal schema: %v", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		log.Fatalf("segmentschema: create output dir: %v", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		log.Fatalf("segmentschema: write schema: %v", err)
	}
}

func buildSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
	}

	requestSchema := reflector.ReflectFromType(reflect.TypeOf(session.SegmentRequest{}))
	if requestSchema == nil {
		return nil, fmt.Errorf("failed to reflect segment request schema")
	}
	requestSchema.Version = ""
	requestSchema.Title = "Segment Submission"
	requestSchema.Description = "One contiguous replay window: player events plus the checkpoint hash chain."

	resultSchema := reflector.ReflectFromType(reflect.TypeOf(session.SegmentResult{}))
	if resultSchema == nil {
		return nil, fmt.Errorf("failed to reflect segment result schema")
	}
	resultSchema.Version = ""
	resultSchema.Title = "Segment Verdict"
	resultSchema.Description = "Verification outcome with reward deltas for an accepted segment."

	root := &jsonschema.Schema{
		Version:     jsonschema.Version,
		Title:       "Towerkeep Segment Verification Wire Format",
		Description: "Request and response documents exchanged on the segment verification endpoint.",
		OneOf: []*jsonschema.Schema{
			requestSchema,
			resultSchema,
		},
	}

	return root, nil
}
