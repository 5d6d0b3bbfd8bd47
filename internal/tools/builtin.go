package tools

// WithBuiltins registers every built-in tool backed by the given clients.
func (b *RegistryBuilder) WithBuiltins(jina *JinaClient, maps *MapsClient, nearbyRadius int) *RegistryBuilder {
	return b.
		WithTool(NewSearchInternetTool(jina, 0)).
		WithTool(NewReadWebsiteTool(jina, 0)).
		WithTool(NewNearbyPlacesTool(maps, nearbyRadius)).
		WithTool(NewGeocodeTool(maps)).
		WithTool(NewReverseGeocodeTool(maps)).
		WithTool(NewDistanceMatrixTool(maps)).
		WithTool(NewOptimizeRouteTool(maps))
}
