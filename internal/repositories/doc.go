// Package repositories implements persistence for credentials and search history.
//
// Credentials are stored as plain string keys behind the [KVStore] interface so the backend can be swapped:
//   - [SQLiteKVStore] : the default, a kv_store table in the local SQLite database
//   - [RedisKVStore] : Redis strings under a configurable key prefix
//
// Both backends implement [BatchSetter], which [CredentialStore] uses to write the access token, refresh token
// and expiration date in one transaction.
//
// [SearchHistoryRepository] keeps a log of issued queries. It never stores playlist data.
package repositories
