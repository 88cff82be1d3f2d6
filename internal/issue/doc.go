// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// Every failure surfaced by the packgen CLI is wrapped in an ActionableError
// naming the operation and resource, and classified against a catalog of
// Markdown explanations rendered with glamour.
package issue
