// Package filelog provides a client for interacting with a filelog server
// over TCP.
//
// Example:
//
//	client, err := filelog.Connect()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Create("orders")
//	id, err := client.Append("orders", []byte("hello"))
//	payload, err := client.Get("orders", id)
package filelog
