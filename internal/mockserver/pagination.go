package mockserver

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/mcp-compliance-runner/internal/mcp/protocol"
)

// page is the half-open window [start, end) of a list plus the cursor for the rest
type page struct {
	start, end int
	next       string
}

func encodeCursor(list string, offset int) string {
	return base64.RawURLEncoding.EncodeToString([]byte(list + ":" + strconv.Itoa(offset)))
}

func decodeCursor(list, cursor string) (int, bool) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, false
	}
	prefix, offset, ok := strings.Cut(string(raw), ":")
	if !ok || prefix != list {
		return 0, false
	}
	n, err := strconv.Atoi(offset)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// paginate reads cursor and use_pagination from params. Lists are returned
// whole unless pagination is requested or a cursor is supplied.
func paginate(list string, total, pageSize int, params map[string]interface{}) (page, error) {
	usePagination := false
	if v, ok := params["use_pagination"]; ok {
		b, isBool := v.(bool)
		if !isBool {
			return page{}, fmt.Errorf("use_pagination must be a boolean")
		}
		usePagination = b
	}

	start := 0
	if v, ok := params["cursor"]; ok {
		cursor, isString := v.(string)
		if !isString {
			return page{}, fmt.Errorf("cursor must be a string")
		}
		offset, valid := decodeCursor(list, cursor)
		if !valid || offset >= total {
			return page{}, fmt.Errorf("invalid cursor %q", cursor)
		}
		start = offset
		usePagination = true
	}

	if !usePagination || pageSize <= 0 {
		return page{start: 0, end: total}, nil
	}

	p := page{start: start, end: start + pageSize}
	if p.end >= total {
		p.end = total
	} else {
		p.next = encodeCursor(list, p.end)
	}
	return p, nil
}

// listResult builds the result object for a paginated list
func listResult(field string, items interface{}, next string) map[string]interface{} {
	result := map[string]interface{}{field: items}
	if next != "" {
		result["nextCursor"] = next
	}
	return result
}

func invalidParams(req *protocol.JSONRPC2Request, err error) *protocol.JSONRPC2Response {
	return protocol.InvalidParamsResponse(req, "%s", err.Error())
}
