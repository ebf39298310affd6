// Package obstore provides an embedded Go client for the observability
// object store backed by Redis or Valkey with the search and JSON modules.
//
// The client talks to the store directly, without the REST layer, and
// applies the same tenant isolation and access grants as the server.
//
//	client, _ := obstore.New(ctx, obstore.WithRedis("localhost:6379", ""))
//	defer client.Close()
//
//	obj, _ := obstore.NewObject(&obstore.Notebook{Name: "incident review"})
//	id, _ := client.Objects().Create(ctx, user, obj)
//
//	page, _ := client.Objects().List(ctx, user, obstore.ListOptions{
//	    Types:     []obstore.ObjectType{obstore.TypeNotebook},
//	    SortField: "lastUpdatedTimeMs",
//	    SortOrder: obstore.Desc,
//	})
//
// A nil user is the system caller: it bypasses tenant and grant checks.
package obstore
