// Package merhist collects Mercari sales and purchase history through an
// authenticated browser session and persists each record as soon as it is
// fetched, so an interrupted run resumes where it left off.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, rod/, slack/).
package merhist
