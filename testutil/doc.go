/*
Package testutil provides shared test helpers for this service: context
helpers, assertions, and fixtures/mocks factories under its subpackages.
Tests in internal/* should prefer these over re-implementing similar
scaffolding package by package.

# Subpackages

  - testutil/fixtures: factories for types.User, types.PriceQuote and
    types.Analysis samples.
  - testutil/mocks: a builder-style fake for llmclient's MessagesAPI seam,
    supporting canned responses, error injection and call recording.

# Example

	ctx := testutil.TestContext(t)
	fake := mocks.NewMockMessagesAPI().WithText("buy the dip")
	client := llmclient.NewWithMessagesAPI(fake, time.Second, zap.NewNop())
*/
package testutil
