package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

// The registry response format is not contractually guaranteed: different
// service builds return different JSON shapes for the same query. Each known
// shape gets its own decoder; decoders are tried in a fixed precedence order
// and the first one yielding at least one identifier wins. When every decoder
// rejects the payload the result is empty, never an error.

// sep is the namespace separator carried by every real model id
// (e.g. "Systran/faster-whisper-base"). Top-level model ids are told apart
// from nested sub-object ids (voice ids etc.) by requiring it.
const sep = "/"

type decoder func([]byte) []string

var decoders = []decoder{
	decodeObjectArrayWithID,
	decodeLooseIDScan,
	decodeStringArray,
	decodeModelsWrapper,
	decodeSingleObject,
	decodePlainTextLines,
}

// ModelIDs recovers a best-effort ordered set of model identifiers from an
// arbitrary response payload. Order of first occurrence is preserved and
// duplicates are dropped.
func ModelIDs(raw []byte) []string {
	for _, d := range decoders {
		if ids := d(raw); len(ids) > 0 {
			return ids
		}
	}
	return nil
}

// decodeObjectArrayWithID handles [{"id": "a/b", ...}, ...].
func decodeObjectArrayWithID(raw []byte) []string {
	var arr []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil {
		return nil
	}
	var ids []string
	for _, obj := range arr {
		v, ok := obj["id"]
		if !ok {
			continue
		}
		var id string
		if err := json.Unmarshal(v, &id); err != nil {
			continue
		}
		if strings.Contains(id, sep) {
			ids = append(ids, id)
		}
	}
	return dedupe(ids)
}

var looseIDPattern = regexp.MustCompile(`"id"\s*:\s*"([^"]+)"`)

// decodeLooseIDScan picks up "id": "a/b" pairs anywhere in the text, even when
// the surrounding document does not parse as JSON.
func decodeLooseIDScan(raw []byte) []string {
	var ids []string
	for _, m := range looseIDPattern.FindAllSubmatch(raw, -1) {
		if id := string(m[1]); strings.Contains(id, sep) {
			ids = append(ids, id)
		}
	}
	return dedupe(ids)
}

// decodeStringArray handles ["a/b", "c/d"].
func decodeStringArray(raw []byte) []string {
	var arr []string
	if err := json.Unmarshal(raw, &arr); err != nil {
		return nil
	}
	var ids []string
	for _, s := range arr {
		if s != "" {
			ids = append(ids, s)
		}
	}
	return dedupe(ids)
}

// decodeModelsWrapper handles {"models": <inner>} where inner is itself one of
// the other JSON shapes, recursively.
func decodeModelsWrapper(raw []byte) []string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	inner, ok := obj["models"]
	if !ok {
		return nil
	}
	for _, d := range []decoder{decodeObjectArrayWithID, decodeLooseIDScan, decodeStringArray, decodeModelsWrapper} {
		if ids := d(inner); len(ids) > 0 {
			return ids
		}
	}
	return nil
}

// decodeSingleObject handles a bare {"id": "a/b"}.
func decodeSingleObject(raw []byte) []string {
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	if obj.ID == "" {
		return nil
	}
	return []string{obj.ID}
}

// decodePlainTextLines is the last resort: one identifier per line, skipping
// blank lines and anything that still looks like structural JSON.
func decodePlainTextLines(raw []byte) []string {
	var ids []string
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.ContainsAny(line, "{}[]") {
			continue
		}
		ids = append(ids, line)
	}
	return dedupe(ids)
}

// dedupe keeps the first occurrence of each id, preserving order.
func dedupe(ids []string) []string {
	if len(ids) < 2 {
		return ids
	}
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
