package types

// Role identifies the author of a chat message
type Role string

const (
	// RoleSystem System role message
	RoleSystem Role = "system"

	// RoleUser User role message
	RoleUser Role = "user"

	// RoleAssistant AI assistant role message
	RoleAssistant Role = "assistant"

	// RoleTool Tool role message, carries the result of a tool call
	RoleTool Role = "tool"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	}
	return false
}

// Normalized finish reasons. Vendor values that have no mapping are kept raw.
const (
	FinishReasonStop          = "stop"
	FinishReasonLength        = "length"
	FinishReasonToolCalls     = "tool_calls"
	FinishReasonContentFilter = "content_filter"
)

// Content part discriminators used in the JSON form of ContentPart
const (
	PartTypeText       = "text"
	PartTypeInlineData = "inline_data"
	PartTypeFileRef    = "file_ref"
)

// EmptyContentPlaceholder replaces an empty part list so no message is sent
// without content.
const EmptyContentPlaceholder = "(empty)"
