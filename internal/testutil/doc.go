// Package testutil provides testing utilities for slackcast.
//
// This package is intended for internal testing only and should not be imported
// by external packages.
//
// # Mock Slack Server
//
// MockSlackServer provides a mock Slack Web API server for testing:
//
//	server := testutil.NewMockServer(t)
//	server.OnLookup(func(w http.ResponseWriter, r *http.Request) {
//	    testutil.ReplyUser(w, testutil.TestUserID, "Amy Pond")
//	})
//	// Use server.BaseURL() as the API base URL
//
// # Request Capture
//
// All requests are automatically captured and can be inspected:
//
//	cap := server.LastCapture()
//	cap.AssertMethod(t, "POST")
//	cap.AssertJSONField(t, "channel", testutil.TestUserID)
//
// # Fake Sleeper
//
// FakeSleeper records sleep calls without actually sleeping:
//
//	sleeper := &testutil.FakeSleeper{}
//	// Pass to client via WithSleeper option
//	assert.Equal(t, 2*time.Second, sleeper.LastCall())
package testutil
