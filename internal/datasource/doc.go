// Package datasource provides interfaces and implementations for fetching
// structured data from heterogeneous remote origins.
//
// The package defines the DataSource interface which abstracts the process of
// validating a source configuration and fetching projected data from a remote
// origin such as an HTTP API, a MongoDB collection, or a SQL database.
//
// Architecture:
//   - DataSource: Interface for fetching and projecting remote data
//   - Registry: Decodes polymorphic configuration payloads into the concrete
//     variant based on a "type" discriminant tag
//   - ValidationError / FetchError: the two error surfaces of the contract;
//     timeouts surface as context.DeadlineExceeded
//
// Current implementations:
//   - HTTPDataSource: Issues an HTTP request and parses the JSON response
//   - MongoDataSource: Queries a MongoDB collection with a filter document
//   - SQLDataSource: Executes a raw query against a SQL database
//
// Every variant compiles its JMESPath projection at construction time and
// applies it to the raw data on each fetch. Instances are immutable once
// constructed; construction is the only place validation happens.
package datasource
