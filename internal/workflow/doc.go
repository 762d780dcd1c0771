// Package workflow implements item intake and approval: grouping uploaded
// photos into numbered items, merging AI proposals, staging operator edits
// and selection, and the item lifecycle from draft to approved and disposed.
//
// Pure functions operate on a *model.Item in place and either fully apply or
// leave it untouched. Session drives them against a Backend.
package workflow
