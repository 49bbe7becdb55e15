// Package models contains GORM persistence models that map to database tables.
// Domain types stay free of ORM tags; each model converts to and from its
// domain counterpart with ToDomain and XxxModelFromDomain.
//
//   - base.go: AggregateModel (id, timestamps, version)
//   - account.go: sellers and channels
//   - campaign.go: campaigns and the campaign activity log
//   - ledger.go: transactions and withdrawal requests
//   - dispute.go: campaign disputes
//   - outbox.go: outbox rows for event delivery
package models
