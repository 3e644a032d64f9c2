// Package domain contains the core entities of the bulk generation engine:
// jobs and their status machine, units and their difficulty classes,
// capability tiers, and generated items. It is independent of any specific
// infrastructure or delivery mechanism.
package domain
