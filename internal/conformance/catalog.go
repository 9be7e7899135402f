package conformance

// Catalog returns the built-in check for every known requirement, in the
// order requirements appear in the catalogs
func Catalog() []Check {
	return []Check{
		{Name: "spec_version_supported", RequirementID: "SPEC-VERSION-1", Run: checkSpecVersion},
		{Name: "spec_features_defined", RequirementID: "SPEC-FEATURES-1", Run: checkSpecFeatures},

		{Name: "jsonrpc_wrong_version", RequirementID: "JSONRPC-1", Run: checkWrongVersion},
		{Name: "jsonrpc_missing_method", RequirementID: "JSONRPC-2", Run: checkMissingMethod},
		{Name: "jsonrpc_non_string_method", RequirementID: "JSONRPC-3", Run: checkNonStringMethod},
		{Name: "jsonrpc_missing_version", RequirementID: "JSONRPC-4", Run: checkMissingVersion},
		{Name: "jsonrpc_non_json_payload", RequirementID: "JSONRPC-5", Run: checkNonJSONPayload},
		{Name: "jsonrpc_method_not_found", RequirementID: "JSONRPC-6", Run: checkUnknownMethod},

		{Name: "prompts_list", RequirementID: "PROMPTS-LIST-1", Run: checkPromptsList},
		{Name: "prompts_list_invalid_cursor", RequirementID: "PROMPTS-LIST-2", Run: checkPromptsInvalidCursor},
		{Name: "prompts_list_pagination", RequirementID: "PROMPTS-LIST-3", Run: checkPromptsPagination},
		{Name: "prompts_get_unknown_name", RequirementID: "PROMPTS-GET-1", Run: checkPromptsUnknownName},
		{Name: "prompts_get_missing_argument", RequirementID: "PROMPTS-GET-2", Run: checkPromptsMissingArgument},
		{Name: "prompts_get_message_structure", RequirementID: "PROMPTS-GET-3", Run: checkPromptsMessageStructure},
		{Name: "prompts_get_argument_types", RequirementID: "PROMPTS-GET-4", Run: checkPromptsArgumentTypes},
		{Name: "prompts_get_extra_arguments", RequirementID: "PROMPTS-GET-5", Run: checkPromptsExtraArguments},
		{Name: "prompts_list_changed_capability", RequirementID: "PROMPTS-LIST-CHANGED-1", Run: checkPromptsListChangedCapability},
		{Name: "prompts_list_changes", RequirementID: "PROMPTS-LIST-CHANGED-2", Run: checkPromptsListChanges},

		{Name: "resources_list", RequirementID: "RESOURCES-LIST-1", Run: checkResourcesList},
		{Name: "resources_list_pagination", RequirementID: "RESOURCES-LIST-2", Run: checkResourcesPagination},
		{Name: "resources_list_invalid_params", RequirementID: "RESOURCES-LIST-3", Run: checkResourcesInvalidParams},
		{Name: "resources_read", RequirementID: "RESOURCES-READ-1", Run: checkResourcesRead},
		{Name: "resources_read_mime_type", RequirementID: "RESOURCES-READ-2", Run: checkResourcesMimeType},
		{Name: "resources_read_errors", RequirementID: "RESOURCES-READ-3", Run: checkResourcesReadErrors},
		{Name: "resources_templates_list", RequirementID: "RESOURCES-TEMPLATES-1", Run: checkResourceTemplatesList},
		{Name: "resources_templates_uri", RequirementID: "RESOURCES-TEMPLATES-2", Run: checkResourceTemplatesURI},
		{Name: "resources_templates_mime_type", RequirementID: "RESOURCES-TEMPLATES-3", Run: checkResourceTemplatesMimeType},
		{Name: "resources_list_changed_capability", RequirementID: "RESOURCES-LIST-CHANGED-1", Run: checkResourcesListChangedCapability},
		{Name: "resources_list_changes", RequirementID: "RESOURCES-LIST-CHANGED-2", Run: checkResourcesListChanges},
		{Name: "resources_subscribe_capability", RequirementID: "RESOURCES-SUBSCRIBE-1", Run: checkResourcesSubscribeCapability},
		{Name: "resources_subscribe_lifecycle", RequirementID: "RESOURCES-SUBSCRIBE-2", Run: checkResourcesSubscribeLifecycle},
		{Name: "resources_subscribe_errors", RequirementID: "RESOURCES-SUBSCRIBE-3", Run: checkResourcesSubscribeErrors},

		{Name: "tools_list", RequirementID: "TOOLS-LIST-1", Run: checkToolsList},
		{Name: "tools_list_pagination", RequirementID: "TOOLS-LIST-2", Run: checkToolsPagination},
		{Name: "tools_list_invalid_cursor", RequirementID: "TOOLS-LIST-3", Run: checkToolsInvalidCursor},
		{Name: "tools_list_stable", RequirementID: "TOOLS-LIST-4", Run: checkToolsListStable},
		{Name: "tools_list_input_schemas", RequirementID: "TOOLS-LIST-5", Run: checkToolsInputSchemas},
		{Name: "tools_call", RequirementID: "TOOLS-CALL-1", Run: checkToolsCall},
		{Name: "tools_call_invalid_params", RequirementID: "TOOLS-CALL-2", Run: checkToolsCallInvalidParams},
		{Name: "tools_call_error_reporting", RequirementID: "TOOLS-CALL-3", Run: checkToolsErrorReporting},
		{Name: "tools_call_error_content", RequirementID: "TOOLS-CALL-4", Run: checkToolsErrorContent},
		{Name: "tools_call_rate_limit", RequirementID: "TOOLS-CALL-5", Run: checkToolsRateLimit},
		{Name: "tools_list_changed_capability", RequirementID: "TOOLS-LIST-CHANGED-1", Run: checkToolsListChangedCapability},
		{Name: "tools_list_changes", RequirementID: "TOOLS-LIST-CHANGED-2", Run: checkToolsListChanges},

		{Name: "completion_prompt_argument", RequirementID: "COMPLETION-1", Run: checkCompletionPrompt},
		{Name: "completion_resource_uri", RequirementID: "COMPLETION-2", Run: checkCompletionResource},
		{Name: "completion_invalid_refs", RequirementID: "COMPLETION-3", Run: checkCompletionInvalidRefs},
		{Name: "completion_value_limit", RequirementID: "COMPLETION-4", Run: checkCompletionLimit},

		{Name: "security_script_tags", RequirementID: "SECURITY-1", Run: checkScriptTags},
		{Name: "security_event_handlers", RequirementID: "SECURITY-2", Run: checkEventHandlers},
		{Name: "security_prompt_injection", RequirementID: "SECURITY-3", Run: checkPromptInjection},
		{Name: "security_unicode_preserved", RequirementID: "SECURITY-4", Run: checkUnicodePreserved},
		{Name: "input_malformed_arguments", RequirementID: "INPUT-1", Run: checkMalformedArguments},
		{Name: "input_oversized_arguments", RequirementID: "INPUT-2", Run: checkOversizedArguments},
	}
}
