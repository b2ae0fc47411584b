// Package domain contains the core business entities, value objects, and
// domain logic of the application: lists, the resources they order, and the
// subscription integrations linking them. It is independent of any specific
// infrastructure or delivery mechanism.
package domain
