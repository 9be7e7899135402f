package conformance

import (
	"context"
	"net/http"

	"github.com/mcp-compliance-runner/internal/mcp/protocol"
)

func checkSpecVersion(ctx context.Context, s *Session) error {
	if !s.Registry.Has(s.SpecVersion) {
		return Failf("spec version %s is not registered (supported: %v)", s.SpecVersion, s.Registry.SupportedVersions())
	}
	return nil
}

func checkSpecFeatures(ctx context.Context, s *Session) error {
	features, err := s.Registry.Features(s.SpecVersion)
	if err != nil {
		return err
	}
	reqs, err := s.Registry.RequirementsFor(s.SpecVersion)
	if err != nil {
		return err
	}
	if len(features) == 0 || len(reqs) == 0 {
		return Failf("spec version %s defines %d features and %d requirements", s.SpecVersion, len(features), len(reqs))
	}

	declared := make(map[string]bool, len(features))
	for _, f := range features {
		declared[f] = true
	}
	for _, r := range reqs {
		if !declared[r.Feature] {
			return Failf("requirement %s belongs to undeclared feature %s", r.ID, r.Feature)
		}
	}
	return nil
}

func checkWrongVersion(ctx context.Context, s *Session) error {
	return s.ExpectRawError(ctx, `{"jsonrpc":"1.0","id":1,"method":"prompts/list","params":{}}`, protocol.InvalidRequest)
}

func checkMissingMethod(ctx context.Context, s *Session) error {
	return s.ExpectRawError(ctx, `{"jsonrpc":"2.0","id":1,"params":{}}`, protocol.InvalidRequest)
}

func checkNonStringMethod(ctx context.Context, s *Session) error {
	return s.ExpectRawError(ctx, `{"jsonrpc":"2.0","id":1,"method":123,"params":{}}`, protocol.InvalidRequest)
}

func checkMissingVersion(ctx context.Context, s *Session) error {
	return s.ExpectRawError(ctx, `{"id":1,"method":"prompts/list","params":{}}`, protocol.InvalidRequest)
}

func checkNonJSONPayload(ctx context.Context, s *Session) error {
	raw, err := s.Client.SendRaw(ctx, []byte("this is not json"))
	if err != nil {
		return err
	}
	if raw.StatusCode == http.StatusBadRequest {
		return nil
	}
	env, err := protocol.DecodeResponse("raw", raw.Body)
	if err != nil {
		return Failf("non-JSON payload answered with HTTP %d and no JSON-RPC envelope", raw.StatusCode)
	}
	if env.Error == nil || env.Error.Code != protocol.ParseError {
		return Failf("non-JSON payload was not rejected with %d or HTTP 400", protocol.ParseError)
	}
	return nil
}

func checkUnknownMethod(ctx context.Context, s *Session) error {
	return s.ExpectError(ctx, "undefined_method", nil, protocol.MethodNotFound)
}
