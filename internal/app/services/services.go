package services

// Services defined in this package:
// - AuthService: Client credential exchange and token issuance
// - CatalogService: Catalog introspection over the prerequisite graph
// - ScheduleService: Standalone schedule conflict detection
// - ProgressionService: Term run orchestration, persistence and streaming
