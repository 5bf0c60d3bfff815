package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ludo-technologies/finscn/domain"
	"github.com/ludo-technologies/finscn/internal/bytecode"
)

// methodFile is the on-disk form of a method file.
//
//	methods:
//	  - owner: com/example/Sample
//	    name: run
//	    desc: ()I
//	    code: |
//	      L0:
//	        ...
//	    try_catch:
//	      - {start: L0, end: L1, handler: L2, type: java/lang/Exception}
type methodFile struct {
	Methods []methodDoc `json:"methods" yaml:"methods"`
}

type methodDoc struct {
	Owner    string        `json:"owner" yaml:"owner"`
	Name     string        `json:"name" yaml:"name"`
	Desc     string        `json:"desc" yaml:"desc"`
	Code     string        `json:"code" yaml:"code"`
	TryCatch []tryCatchDoc `json:"try_catch,omitempty" yaml:"try_catch,omitempty"`
}

// tryCatchDoc names labels of the code listing. An empty end is the end of
// the method and an empty type is a default handler.
type tryCatchDoc struct {
	Start   string `json:"start" yaml:"start"`
	End     string `json:"end" yaml:"end"`
	Handler string `json:"handler" yaml:"handler"`
	Type    string `json:"type,omitempty" yaml:"type,omitempty"`
}

// MethodCodec reads and writes method files
type MethodCodec struct{}

// NewMethodCodec creates a new method codec
func NewMethodCodec() *MethodCodec {
	return &MethodCodec{}
}

// Decode parses a method file. JSON is accepted for any extension since the
// YAML decoder reads it too.
func (c *MethodCodec) Decode(path string, data []byte) ([]*bytecode.Method, error) {
	var doc methodFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, domain.NewParseError(path, err)
	}

	methods := make([]*bytecode.Method, 0, len(doc.Methods))
	for i, md := range doc.Methods {
		m, err := decodeMethod(md)
		if err != nil {
			return nil, domain.NewParseError(path, fmt.Errorf("method %d (%s): %w", i, md.Name, err))
		}
		methods = append(methods, m)
	}
	return methods, nil
}

func decodeMethod(md methodDoc) (*bytecode.Method, error) {
	if md.Name == "" {
		return nil, fmt.Errorf("missing name")
	}
	code, err := bytecode.Assemble(md.Code)
	if err != nil {
		return nil, err
	}

	m := &bytecode.Method{Owner: md.Owner, Name: md.Name, Desc: md.Desc, Code: code}
	for j, tc := range md.TryCatch {
		entry, err := decodeTryCatch(code, tc)
		if err != nil {
			return nil, fmt.Errorf("try_catch %d: %w", j, err)
		}
		m.TryCatch = append(m.TryCatch, entry)
	}
	return m, nil
}

func decodeTryCatch(code *bytecode.InsnList, tc tryCatchDoc) (bytecode.TryCatchBlock, error) {
	lookup := func(field, name string, optional bool) (bytecode.Label, error) {
		if name == "" {
			if optional {
				return bytecode.NoLabel, nil
			}
			return bytecode.NoLabel, fmt.Errorf("missing %s label", field)
		}
		l, ok := code.LabelByName(name)
		if !ok {
			return bytecode.NoLabel, fmt.Errorf("%s label %q is not placed in the code", field, name)
		}
		return l, nil
	}

	start, err := lookup("start", tc.Start, false)
	if err != nil {
		return bytecode.TryCatchBlock{}, err
	}
	end, err := lookup("end", tc.End, true)
	if err != nil {
		return bytecode.TryCatchBlock{}, err
	}
	handler, err := lookup("handler", tc.Handler, false)
	if err != nil {
		return bytecode.TryCatchBlock{}, err
	}
	return bytecode.TryCatchBlock{Start: start, End: end, Handler: handler, Type: tc.Type}, nil
}

// Encode renders methods as a method file. Paths ending in .json produce
// JSON, everything else YAML.
func (c *MethodCodec) Encode(path string, methods []*bytecode.Method) ([]byte, error) {
	doc := methodFile{Methods: make([]methodDoc, 0, len(methods))}
	for _, m := range methods {
		doc.Methods = append(doc.Methods, encodeMethod(m))
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, domain.NewOutputError("failed to marshal JSON", err)
		}
		return append(data, '\n'), nil
	}

	var buf bytes.Buffer
	if err := WriteYAML(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeMethod(m *bytecode.Method) methodDoc {
	md := methodDoc{Owner: m.Owner, Name: m.Name, Desc: m.Desc}
	if m.Code == nil {
		return md
	}
	md.Code = bytecode.Format(m.Code)
	for _, tc := range m.TryCatch {
		doc := tryCatchDoc{
			Start:   m.Code.LabelName(tc.Start),
			Handler: m.Code.LabelName(tc.Handler),
			Type:    tc.Type,
		}
		if tc.End != bytecode.NoLabel {
			doc.End = m.Code.LabelName(tc.End)
		}
		md.TryCatch = append(md.TryCatch, doc)
	}
	return md
}
