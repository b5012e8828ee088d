package dataset

// allDatasets lists every dataset the registry knows about. Group names
// (e.g. "state_diffs") are registered separately in NewRegistry and are not
// themselves Datasets.
func allDatasets() []*Dataset {
	return []*Dataset{
		blocksDataset(),
		transactionsDataset(),
		logsDataset(),
		receiptsDataset(),
		tracesDataset(),
		balanceDiffsDataset(),
		codeDiffsDataset(),
		nonceDiffsDataset(),
		storageDiffsDataset(),
		contractsDataset(),
		balancesDataset(),
		erc20TransfersDataset(),
		ethCallsDataset(),
	}
}
