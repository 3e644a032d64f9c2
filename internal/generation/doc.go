// Package generation turns a unit and a target count into candidate items.
//
// A Provider is any text-generation backend with capability tiers. The
// BatchGenerator drives one batch through an ordered tier ladder: it calls
// the provider, classifies failures with the Classifier, validates output
// with the QualityGate, and escalates to the next tier when a tier's output
// is unusable. Concrete providers live under internal/platform.
package generation
