package conformance

import (
	"context"
	"strings"

	"github.com/mcp-compliance-runner/internal/mcp/protocol"
	"github.com/mcp-compliance-runner/internal/mcp/validator"
)

// registeredTopLevelTypes are the IANA media type registries
var registeredTopLevelTypes = map[string]bool{
	"application": true,
	"audio":       true,
	"example":     true,
	"font":        true,
	"haptics":     true,
	"image":       true,
	"message":     true,
	"model":       true,
	"multipart":   true,
	"text":        true,
	"video":       true,
}

func checkResourcesList(ctx context.Context, s *Session) error {
	_, err := s.listResources(ctx)
	return err
}

func checkResourcesPagination(ctx context.Context, s *Session) error {
	return s.checkPagination(ctx, "resources/list", "resources", resourceKeys)
}

func checkResourcesInvalidParams(ctx context.Context, s *Session) error {
	if err := s.ExpectError(ctx, "resources/list", map[string]interface{}{"cursor": "invalid_cursor"}, protocol.InvalidParams); err != nil {
		return err
	}
	return s.ExpectError(ctx, "resources/list", map[string]interface{}{"use_pagination": "yes"}, protocol.InvalidParams)
}

func (s *Session) firstResource(ctx context.Context) (validator.Resource, error) {
	resources, err := s.listResources(ctx)
	if err != nil {
		return validator.Resource{}, err
	}
	if len(resources) == 0 {
		return validator.Resource{}, Skip("server lists no resources")
	}
	return resources[0], nil
}

func (s *Session) readResource(ctx context.Context, uri string) (*validator.ResourceReadResult, error) {
	raw, err := s.Call(ctx, "resources/read", map[string]interface{}{"uri": uri})
	if err != nil {
		return nil, err
	}
	return validator.ResourceRead(raw)
}

func checkResourcesRead(ctx context.Context, s *Session) error {
	resource, err := s.firstResource(ctx)
	if err != nil {
		return err
	}
	result, err := s.readResource(ctx, resource.URI)
	if err != nil {
		return err
	}
	for _, c := range result.Contents {
		if c.URI != resource.URI {
			return Failf("read %s returned contents for %s", resource.URI, c.URI)
		}
	}
	return nil
}

func checkResourcesMimeType(ctx context.Context, s *Session) error {
	resources, err := s.listResources(ctx)
	if err != nil {
		return err
	}

	checked := 0
	for _, r := range resources {
		if r.MimeType == "" {
			continue
		}
		result, err := s.readResource(ctx, r.URI)
		if err != nil {
			return err
		}
		for _, c := range result.Contents {
			if c.MimeType != r.MimeType {
				return Failf("resource %s is listed as %s but read as %q", r.URI, r.MimeType, c.MimeType)
			}
		}
		checked++
	}
	if checked == 0 {
		return Skip("no listed resource announces a mimeType")
	}
	return nil
}

func checkResourcesReadErrors(ctx context.Context, s *Session) error {
	if err := s.ExpectError(ctx, "resources/read", map[string]interface{}{"uri": "unknown://resource"}, protocol.ResourceNotFound); err != nil {
		return err
	}
	if err := s.ExpectError(ctx, "resources/read", map[string]interface{}{}, protocol.InvalidParams); err != nil {
		return err
	}
	return s.ExpectError(ctx, "resources/read", map[string]interface{}{"uri": 123}, protocol.InvalidParams)
}

func checkResourceTemplatesList(ctx context.Context, s *Session) error {
	_, err := s.listTemplates(ctx)
	return err
}

func checkResourceTemplatesURI(ctx context.Context, s *Session) error {
	templates, err := s.listTemplates(ctx)
	if err != nil {
		return err
	}
	if len(templates) == 0 {
		return Skip("server lists no resource templates")
	}
	for _, t := range templates {
		if !strings.Contains(t.URITemplate, "://") {
			return Failf("template %s is not an absolute URI", t.URITemplate)
		}
		open := strings.Index(t.URITemplate, "{")
		if open < 0 || !strings.Contains(t.URITemplate[open:], "}") {
			return Failf("template %s declares no {variable}", t.URITemplate)
		}
	}
	return nil
}

func checkResourceTemplatesMimeType(ctx context.Context, s *Session) error {
	templates, err := s.listTemplates(ctx)
	if err != nil {
		return err
	}
	if len(templates) == 0 {
		return Skip("server lists no resource templates")
	}
	for _, t := range templates {
		top, sub, ok := strings.Cut(t.MimeType, "/")
		if !ok || sub == "" {
			return Failf("template %s has malformed mimeType %q", t.URITemplate, t.MimeType)
		}
		if !registeredTopLevelTypes[strings.ToLower(top)] {
			return Failf("template %s uses unregistered top-level type %q", t.URITemplate, top)
		}
	}
	return nil
}

func checkResourcesListChangedCapability(ctx context.Context, s *Session) error {
	return s.RequireCapability(ctx, "resources", "listChanged")
}

func checkResourcesListChanges(ctx context.Context, s *Session) error {
	if err := s.RequireCapability(ctx, "resources", "listChanged"); err != nil {
		return err
	}
	return s.watchList(ctx, "resources/list", resourceKeys)
}

func checkResourcesSubscribeCapability(ctx context.Context, s *Session) error {
	return s.RequireCapability(ctx, "resources", "subscribe")
}

func checkResourcesSubscribeLifecycle(ctx context.Context, s *Session) error {
	if err := s.RequireCapability(ctx, "resources", "subscribe"); err != nil {
		return err
	}
	resource, err := s.firstResource(ctx)
	if err != nil {
		return err
	}

	raw, err := s.Call(ctx, "resources/subscribe", map[string]interface{}{"uri": resource.URI})
	if err != nil {
		return err
	}
	sub, err := validator.Subscribe(raw)
	if err != nil {
		return err
	}
	if sub.SubscriptionID == "" {
		return Failf("subscribe to %s returned an empty subscriptionId", resource.URI)
	}

	_, err = s.Call(ctx, "resources/unsubscribe", map[string]interface{}{"subscriptionId": sub.SubscriptionID})
	return err
}

func checkResourcesSubscribeErrors(ctx context.Context, s *Session) error {
	if err := s.RequireCapability(ctx, "resources", "subscribe"); err != nil {
		return err
	}
	if err := s.ExpectError(ctx, "resources/subscribe", map[string]interface{}{"uri": "unknown://resource"}, protocol.ResourceNotFound); err != nil {
		return err
	}
	if err := s.ExpectError(ctx, "resources/subscribe", map[string]interface{}{}, protocol.InvalidParams); err != nil {
		return err
	}
	return s.ExpectError(ctx, "resources/unsubscribe", map[string]interface{}{"subscriptionId": "invalid_id"}, protocol.InvalidParams)
}
