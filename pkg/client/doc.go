// Package client is a Go client for the tenderdraft HTTP API.
//
//	c, _ := client.New("http://localhost:8080", client.WithAPIKey(key))
//	up, _ := c.Upload(ctx, "rfp.pdf", f, client.DocTypeSource)
//	body, _ := c.Generate(ctx, client.GenerateRequest{Prompt: "Public cloud tender"},
//	    func(msg string) { log.Println(msg) })
package client
