// Package driver provides graph store driver implementations for mediagraph.
//
// This package defines the GraphDriver and GraphSession interfaces and
// provides implementations for Bolt stores and an in-process graph.
//
// # Supported Stores
//
//   - Neo4j: over the official neo4j-go-driver
//   - Memgraph: same Bolt driver, Memgraph schema syntax
//   - Memory: in-process graph for tests and dry runs
//
// # Usage
//
//	d, err := driver.NewDriver(driver.Config{
//	    Provider: driver.GraphProviderNeo4j,
//	    URI:      "bolt://localhost:7687",
//	    Username: "neo4j",
//	    Password: "password",
//	})
//	if err != nil {
//	    return err
//	}
//	if err := d.VerifyConnectivity(ctx); err != nil {
//	    // errors.Is(err, driver.ErrUnauthorized) or driver.ErrUnavailable
//	}
//	session, err := d.Session(ctx)
//
// # Thread Safety
//
// Drivers are safe for concurrent use. Sessions are not: each orchestrator
// owns one session for its lifetime.
//
// # Query Safety
//
// Node labels and relation types are validated against the closed
// enumerations in pkg/types before they are placed into query text. Names and
// attributes are always bound as parameters.
package driver
