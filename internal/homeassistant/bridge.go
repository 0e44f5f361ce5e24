package homeassistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// homekitDomain is the integration domain of HomeKit bridge entries.
const homekitDomain = "homekit"

// maxFlowSteps bounds how many form steps an options flow may present
// before it is treated as stuck.
const maxFlowSteps = 6

// Options flow step and field names used by the HomeKit bridge.
const (
	stepInit           = "init"
	stepIncludeExclude = "include_exclude"

	fieldDomains            = "domains"
	fieldEntities           = "entities"
	fieldIncludeExcludeMode = "include_exclude_mode"
)

// HomeKitBridges lists the loaded HomeKit bridge config entries.
func (c *Client) HomeKitBridges(ctx context.Context) ([]ConfigEntry, error) {
	return c.ConfigEntries(ctx, homekitDomain)
}

// AccessoryFilter reads a bridge's current accessory filter. It opens
// the bridge's options flow, collects the current values carried as
// form defaults, and abandons the flow before the final step, so
// nothing is committed.
func (c *Client) AccessoryFilter(ctx context.Context, entryID string) (AccessoryFilter, error) {
	step, err := c.startOptionsFlow(ctx, entryID)
	if err != nil {
		return AccessoryFilter{}, err
	}

	filter := AccessoryFilter{Mode: FilterExclude}
	for i := 0; i < maxFlowSteps; i++ {
		if step.Type != "form" {
			// The flow finished on its own. Only defaults were ever
			// submitted, so nothing changed.
			return filter, nil
		}

		if f, ok := step.field(fieldDomains); ok {
			filter.Domains = f.defaultStrings()
		}
		if f, ok := step.field(fieldIncludeExcludeMode); ok {
			if mode := f.defaultString(); mode != "" {
				filter.Mode = mode
			}
		}
		if f, ok := step.field(fieldEntities); ok {
			filter.Entities = f.defaultStrings()
		}

		if step.StepID == stepIncludeExclude {
			// Everything we need has been read; walk away.
			if err := c.abortOptionsFlow(ctx, step.FlowID); err != nil {
				c.logger.Warn("abandoning options flow failed", "entry_id", entryID, "error", err)
			}
			return filter, nil
		}

		step, err = c.advanceOptionsFlow(ctx, step.FlowID, defaultsPayload(step))
		if err != nil {
			return AccessoryFilter{}, err
		}
	}

	return AccessoryFilter{}, fmt.Errorf("%w: reading filter for %s", ErrFlowStuck, entryID)
}

// SetAccessoryFilter rewrites a bridge's accessory filter by driving
// its options flow to completion. Fields the flow presents that the
// filter does not cover are resubmitted with their current values.
func (c *Client) SetAccessoryFilter(ctx context.Context, entryID string, filter AccessoryFilter) error {
	step, err := c.startOptionsFlow(ctx, entryID)
	if err != nil {
		return err
	}

	for i := 0; i < maxFlowSteps; i++ {
		switch step.Type {
		case "create_entry":
			c.logger.Debug("accessory filter updated",
				"entry_id", entryID,
				"mode", filter.Mode,
				"entities", len(filter.Entities),
			)
			return nil

		case "abort":
			return fmt.Errorf("%w: options flow aborted: %s", ErrRequestFailed, step.Reason)

		case "form":
			payload := defaultsPayload(step)
			if _, ok := step.field(fieldDomains); ok {
				payload[fieldDomains] = emptyIfNil(filter.Domains)
			}
			if _, ok := step.field(fieldIncludeExcludeMode); ok {
				payload[fieldIncludeExcludeMode] = filter.Mode
			}
			if _, ok := step.field(fieldEntities); ok {
				payload[fieldEntities] = emptyIfNil(filter.Entities)
			}

			step, err = c.advanceOptionsFlow(ctx, step.FlowID, payload)
			if err != nil {
				return err
			}

		default:
			return fmt.Errorf("%w: unexpected flow state %q", ErrRequestFailed, step.Type)
		}
	}

	return fmt.Errorf("%w: writing filter for %s", ErrFlowStuck, entryID)
}

// startOptionsFlow opens a config entry's options flow.
func (c *Client) startOptionsFlow(ctx context.Context, entryID string) (*flowStep, error) {
	var step flowStep
	err := c.post(ctx, "/api/config/config_entries/options/flow",
		map[string]any{"handler": entryID, "show_advanced_options": true}, &step)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, entryID)
		}
		return nil, fmt.Errorf("starting options flow for %s: %w", entryID, err)
	}
	return &step, nil
}

// advanceOptionsFlow submits one form step.
func (c *Client) advanceOptionsFlow(ctx context.Context, flowID string, payload map[string]any) (*flowStep, error) {
	var step flowStep
	err := c.post(ctx, "/api/config/config_entries/options/flow/"+flowID, payload, &step)
	if err != nil {
		return nil, fmt.Errorf("advancing options flow: %w", err)
	}
	return &step, nil
}

// abortOptionsFlow abandons an in-progress options flow.
func (c *Client) abortOptionsFlow(ctx context.Context, flowID string) error {
	return c.delete(ctx, "/api/config/config_entries/options/flow/"+flowID)
}

// defaultsPayload builds a step submission that resubmits every field's
// current value, leaving options this service does not manage untouched.
func defaultsPayload(step *flowStep) map[string]any {
	payload := make(map[string]any, len(step.DataSchema))
	for _, f := range step.DataSchema {
		if len(f.Default) == 0 {
			continue
		}
		var v any
		if err := json.Unmarshal(f.Default, &v); err == nil {
			payload[f.Name] = v
		}
	}
	return payload
}

// emptyIfNil keeps list fields serialising as [] rather than null.
func emptyIfNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

// isStatus reports whether err is an API error with the given status.
func isStatus(err error, status int) bool {
	var serr *statusError
	return errors.As(err, &serr) && serr.status == status
}
