package icon

import (
	"sort"
	"strings"
)

// parseEventHeaderTypes extracts the parenthesized type list from an event
// signature such as "Transfer(Address,Address,int)" (spec.md §6.3).
func parseEventHeaderTypes(event string) []string {
	open := strings.IndexByte(event, '(')
	shut := strings.LastIndexByte(event, ')')
	if open < 0 || shut < 0 || shut < open {
		return nil
	}
	inner := event[open+1 : shut]
	if inner == "" {
		return nil
	}
	parts := strings.Split(inner, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

// eventHeaderScalarTag maps an event-header type name to this library's
// scalar registry tag (spec.md §6.3: "int→Integer, str→String,
// bytes→BinaryData, bool→Boolean, Address→Address").
func eventHeaderScalarTag(typeName string) string {
	switch typeName {
	case "int":
		return "int"
	case "str":
		return "str"
	case "bytes":
		return "bytes"
	case "bool":
		return "bool"
	case "Address":
		return "address"
	default:
		return "str"
	}
}

// dumpIndexedValues dumps a slice of host values against a slice of
// event-header type names, passing a nil entry through unchanged ("match
// any", spec.md §6.3).
func dumpIndexedValues(vals []any, types []string) ([]any, error) {
	out := make([]any, len(vals))
	for i, v := range vals {
		if v == nil {
			out[i] = nil
			continue
		}
		tag := "str"
		if i < len(types) {
			tag = eventHeaderScalarTag(types[i])
		}
		codec, ok := Scalars[tag]
		if !ok {
			return nil, NewInvalidParamsError("event filter: unknown header type")
		}
		wv, err := codec.Dump(v)
		if err != nil {
			return nil, NewInvalidParamsError("event filter: value is invalid")
		}
		out[i] = wv
	}
	return out, nil
}

// encodeFilter renders one EventFilter to its wire form (spec.md §6.3):
// indexed values are dumped against the header's type list, data values
// continue the same type list where indexed left off.
func encodeFilter(f EventFilter) (map[string]any, error) {
	if f.Event == "" {
		return nil, NewInvalidParamsError("event filter: event is required")
	}
	types := parseEventHeaderTypes(f.Event)

	indexedTypes := types
	if len(indexedTypes) > len(f.Indexed) {
		indexedTypes = indexedTypes[:len(f.Indexed)]
	}
	indexed, err := dumpIndexedValues(f.Indexed, indexedTypes)
	if err != nil {
		return nil, err
	}

	var dataTypes []string
	if len(types) > len(f.Indexed) {
		dataTypes = types[len(f.Indexed):]
	}
	data, err := dumpIndexedValues(f.Data, dataTypes)
	if err != nil {
		return nil, err
	}

	wire := map[string]any{"event": f.Event}
	if f.Addr != "" {
		wire["addr"] = f.Addr
	}
	if len(indexed) > 0 {
		wire["indexed"] = indexed
	}
	if len(data) > 0 {
		wire["data"] = data
	}
	return wire, nil
}

// decodeEventForm decodes a single-filter ("event" source) notification:
// {height, hash, index, events: [non_neg_integer...]} (spec.md §4.5).
func decodeEventForm(raw map[string]any) (StreamEvent, error) {
	heightHex, _ := raw["height"].(string)
	height, err := hexToUint64(heightHex)
	if err != nil {
		return StreamEvent{}, NewInvalidParamsError("stream: height is invalid")
	}
	hash, _ := raw["hash"].(string)
	indexHex, _ := raw["index"].(string)
	txIdx, err := hexToUint64(indexHex)
	if err != nil {
		return StreamEvent{}, NewInvalidParamsError("stream: index is invalid")
	}

	logIdxs, err := decodeHexIndexList(raw["events"])
	if err != nil {
		return StreamEvent{}, err
	}

	return StreamEvent{
		Height: height,
		Hash:   hash,
		Events: map[uint64][]uint64{txIdx: logIdxs},
	}, nil
}

// decodeBlockForm decodes a multi-filter ("block" source) notification:
// {height, hash, indexes: [[tx_idx...]...], events: [[[log_idx...]...]...]}
// merging across filters per the §4.5 decoding contract.
func decodeBlockForm(raw map[string]any) (StreamEvent, error) {
	heightHex, _ := raw["height"].(string)
	height, err := hexToUint64(heightHex)
	if err != nil {
		return StreamEvent{}, NewInvalidParamsError("stream: height is invalid")
	}
	hash, _ := raw["hash"].(string)

	indexesRaw, ok := raw["indexes"].([]any)
	if !ok {
		return StreamEvent{}, NewInvalidParamsError("stream: indexes is invalid")
	}
	eventsRaw, ok := raw["events"].([]any)
	if !ok || len(eventsRaw) != len(indexesRaw) {
		return StreamEvent{}, NewInvalidParamsError("stream: events is invalid")
	}

	merged := map[uint64][]uint64{}
	for i := range indexesRaw {
		txIdxList, ok := indexesRaw[i].([]any)
		if !ok {
			return StreamEvent{}, NewInvalidParamsError("stream: indexes is invalid")
		}
		logIdxLists, ok := eventsRaw[i].([]any)
		if !ok || len(logIdxLists) != len(txIdxList) {
			return StreamEvent{}, NewInvalidParamsError("stream: events is invalid")
		}
		for j, txIdxVal := range txIdxList {
			txIdxHex, ok := txIdxVal.(string)
			if !ok {
				return StreamEvent{}, NewInvalidParamsError("stream: indexes is invalid")
			}
			txIdx, err := hexToUint64(txIdxHex)
			if err != nil {
				return StreamEvent{}, NewInvalidParamsError("stream: indexes is invalid")
			}
			logIdxs, err := decodeHexIndexList(logIdxLists[j])
			if err != nil {
				return StreamEvent{}, err
			}
			merged[txIdx] = mergeIndexList(merged[txIdx], logIdxs)
		}
	}

	return StreamEvent{Height: height, Hash: hash, Events: merged}, nil
}

func decodeHexIndexList(raw any) ([]uint64, error) {
	arr, ok := raw.([]any)
	if !ok {
		return nil, NewInvalidParamsError("stream: events is invalid")
	}
	out := make([]uint64, 0, len(arr))
	for _, v := range arr {
		s, ok := v.(string)
		if !ok {
			return nil, NewInvalidParamsError("stream: events is invalid")
		}
		n, err := hexToUint64(s)
		if err != nil {
			return nil, NewInvalidParamsError("stream: events is invalid")
		}
		out = append(out, n)
	}
	return out, nil
}

// mergeIndexList appends values not already present, preserving order
// (spec.md §4.5: "merged across filters (values de-duplicated while
// preserving order)").
func mergeIndexList(existing, add []uint64) []uint64 {
	seen := make(map[uint64]bool, len(existing))
	for _, v := range existing {
		seen[v] = true
	}
	for _, v := range add {
		if !seen[v] {
			existing = append(existing, v)
			seen[v] = true
		}
	}
	return existing
}

// eventsEqual supports tail-deduplication (spec.md §4.5 item 3, §8
// "Tail de-duplication").
func eventsEqual(a, b StreamEvent) bool {
	if a.Height != b.Height || a.Hash != b.Hash || len(a.Events) != len(b.Events) {
		return false
	}
	for k, av := range a.Events {
		bv, ok := b.Events[k]
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
	}
	return true
}

// sortedTxIndexes is a small helper for deterministic iteration when a
// caller wants to render Events in tx-index order. The decoder does not
// use it, and nothing else in this module calls it.
func sortedTxIndexes(events map[uint64][]uint64) []uint64 {
	keys := make([]uint64, 0, len(events))
	for k := range events {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
