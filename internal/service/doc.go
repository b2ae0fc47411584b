// Package service provides application-level orchestration for lists,
// resources, and imports. Services validate ownership, persist through the
// store interfaces, and trigger the asynchronous machinery (fan-out,
// enrichment) without waiting for it.
package service
