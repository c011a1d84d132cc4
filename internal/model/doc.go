// Package model defines the core data types for OnionWatch: job records
// (Scan, Report), their status state machine, and the transient shapes
// extracted from marketplace pages (Item) and produced by classification
// (Verdict).
package model
