package exposure

// BulkAction identifies a bulk mutation applied to a batch of entity ids.
type BulkAction string

const (
	// BulkActionExclude adds the ids to the entity match list.
	BulkActionExclude BulkAction = "exclude"

	// BulkActionUnexclude removes the ids from the entity match list.
	BulkActionUnexclude BulkAction = "unexclude"

	// BulkActionAddOverride adds the ids to the override list.
	BulkActionAddOverride BulkAction = "add_override"

	// BulkActionRemoveOverride removes the ids from the override list.
	BulkActionRemoveOverride BulkAction = "remove_override"

	// BulkActionSetAliasPrefix sets each entity's alias to the given
	// value prepended to its display name.
	BulkActionSetAliasPrefix BulkAction = "set_alias_prefix"

	// BulkActionSetAliasSuffix sets each entity's alias to its display
	// name followed by the given value.
	BulkActionSetAliasSuffix BulkAction = "set_alias_suffix"

	// BulkActionClearAlias removes each entity's alias entry.
	BulkActionClearAlias BulkAction = "clear_alias"

	// BulkActionExcludeDomain adds each entity's domain to the domain
	// match list.
	BulkActionExcludeDomain BulkAction = "exclude_domain"

	// BulkActionExcludeDevice adds each entity's device to the device
	// match list. Ids without a device are skipped.
	BulkActionExcludeDevice BulkAction = "exclude_device"
)

// AllBulkActions returns every supported bulk action.
func AllBulkActions() []BulkAction {
	return []BulkAction{
		BulkActionExclude,
		BulkActionUnexclude,
		BulkActionAddOverride,
		BulkActionRemoveOverride,
		BulkActionSetAliasPrefix,
		BulkActionSetAliasSuffix,
		BulkActionClearAlias,
		BulkActionExcludeDomain,
		BulkActionExcludeDevice,
	}
}

// RequiresValue reports whether the action needs a non-empty value.
func (a BulkAction) RequiresValue() bool {
	return a == BulkActionSetAliasPrefix || a == BulkActionSetAliasSuffix
}

// TouchesAliases reports whether the action writes alias entries, which
// is rejected for HomeKit.
func (a BulkAction) TouchesAliases() bool {
	switch a {
	case BulkActionSetAliasPrefix, BulkActionSetAliasSuffix, BulkActionClearAlias:
		return true
	default:
		return false
	}
}
